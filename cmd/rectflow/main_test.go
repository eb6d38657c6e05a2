package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/rectflow/internal/flow"
)

func TestParseLabels(t *testing.T) {
	got, err := parseLabels(" 0, 3,,9 ")
	require.NoError(t, err)
	assert.Equal(t, flow.Labels{0, 3, 9}, got)

	_, err = parseLabels("1,x")
	assert.Error(t, err)

	_, err = parseLabels(" , ")
	assert.Error(t, err)
}

func TestAppCommands(t *testing.T) {
	app := newApp()

	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"train", "sample", "serve", "version"}, names)

	require.NoError(t, app.Run(context.Background(), []string{"rectflow", "version"}))
}

func TestAppRejectsUnknownLogFormat(t *testing.T) {
	err := newApp().Run(context.Background(), []string{"rectflow", "--log-format", "xml", "version"})
	assert.Error(t, err)
}
