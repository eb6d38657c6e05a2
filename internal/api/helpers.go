package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/born-ml/rectflow/internal/flow"
	"github.com/born-ml/rectflow/internal/nn"
)

const (
	errInvalidRequest = "invalid_request_error"
	errServer         = "server_error"
	errCancelled      = "cancelled"
)

// errBadRequest marks request validation failures outside the sampler.
var errBadRequest = errors.New("invalid request")

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("invalid request body: %w", err)
	}
	return out, nil
}

func writeJSON(c *echo.Context, status int, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeBlob(c, status, echo.MIMEApplicationJSON, b)
}

func writeBlob(c *echo.Context, status int, contentType string, b []byte) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, contentType)
	res.WriteHeader(status)
	_, err := res.Write(b)
	return err
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, errInvalidRequest, msg)
}

func writeError(c *echo.Context, status int, errType, msg string) error {
	return writeJSON(c, status, map[string]any{
		"error": ErrorBody{Message: msg, Type: errType},
	})
}

// classify maps a sampling failure to an HTTP status and error type.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, flow.ErrShapeMismatch),
		errors.Is(err, flow.ErrInvalidStepCount),
		errors.Is(err, nn.ErrUnknownClass),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errInvalidRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errCancelled
	default:
		return http.StatusInternalServerError, errServer
	}
}

func writeSampleError(c *echo.Context, err error) error {
	status, errType := classify(err)
	return writeError(c, status, errType, err.Error())
}
