// Package api serves the sampler over HTTP.
package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/born-ml/rectflow/internal/flow"
	"github.com/born-ml/rectflow/internal/imageio"
	"github.com/born-ml/rectflow/internal/logger"
	"github.com/born-ml/rectflow/internal/nn"
	"github.com/born-ml/rectflow/internal/tensor"
)

// Model is a velocity network that can be sampled with guidance.
type Model interface {
	flow.Predictor
	Config() nn.MLPConfig
	NullClass() int
}

// Limits bounds the work of a single request.
type Limits struct {
	MaxBatch int
	MaxSteps int
}

// Server samples from one model. Requests are serialized because the
// network caches activations between calls.
type Server struct {
	mu       sync.Mutex
	model    Model
	defaults flow.SampleConfig
	limits   Limits
	log      logger.Logger
}

// NewServer creates a Server.
func NewServer(model Model, defaults flow.SampleConfig, limits Limits, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{model: model, defaults: defaults, limits: limits, log: log}
}

// Register mounts the routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/model", s.handleModel)
	e.POST("/v1/samples", s.handleSample)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return writeJSON(c, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModel(c *echo.Context) error {
	cfg := s.model.Config()
	return writeJSON(c, http.StatusOK, ModelInfo{
		Shape:         cfg.Example,
		NumClasses:    cfg.NumClasses,
		NullClass:     s.model.NullClass(),
		Steps:         s.defaults.Steps,
		GuidanceScale: s.defaults.GuidanceScale,
		MaxBatch:      s.limits.MaxBatch,
		MaxSteps:      s.limits.MaxSteps,
	})
}

// job is a validated sampling request.
type job struct {
	id     string
	labels flow.Labels
	cond   flow.Condition
	null   flow.Condition
	noise  *tensor.Tensor
	config flow.SampleConfig
}

func (s *Server) handleSample(c *echo.Context) error {
	req, err := decodeJSON[SampleRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	j, err := s.prepare(req)
	if err != nil {
		return writeSampleError(c, err)
	}

	if wantsStream(c) {
		if isImageFormat(req.Format) {
			return writeBadRequest(c, "streamed responses are JSON events; format must be json")
		}
		return s.streamSample(c, j, req)
	}

	traj, err := s.run(c.Request().Context(), j)
	if err != nil {
		s.log.Warn("sampling failed", "id", j.id, "error", err)
		return writeSampleError(c, err)
	}

	if isImageFormat(req.Format) {
		return s.writeImage(c, strings.ToLower(req.Format), traj, req.NRow)
	}
	return writeJSON(c, http.StatusOK, s.response(j, traj, req.Trajectory))
}

func isImageFormat(format string) bool {
	f := strings.ToLower(format)
	return f == "png" || f == "gif"
}

// prepare validates req against the limits and builds the sampler inputs.
func (s *Server) prepare(req SampleRequest) (*job, error) {
	cfg := s.defaults
	if req.Steps != nil {
		cfg.Steps = *req.Steps
	}
	if req.GuidanceScale != nil {
		cfg.GuidanceScale = *req.GuidanceScale
	}
	if cfg.Steps <= 0 {
		return nil, flow.ErrInvalidStepCount
	}
	if s.limits.MaxSteps > 0 && cfg.Steps > s.limits.MaxSteps {
		return nil, fmt.Errorf("%w: steps %d exceeds limit %d", flow.ErrInvalidStepCount, cfg.Steps, s.limits.MaxSteps)
	}
	switch strings.ToLower(req.Format) {
	case "", "json", "png", "gif":
	default:
		return nil, fmt.Errorf("%w: unknown format %q", errBadRequest, req.Format)
	}

	n := len(req.Labels)
	if req.Unconditional && n == 0 {
		n = req.Count
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: no labels (unconditional requests may set count)", errBadRequest)
	}
	if s.limits.MaxBatch > 0 && n > s.limits.MaxBatch {
		return nil, fmt.Errorf("%w: batch of %d exceeds limit %d", errBadRequest, n, s.limits.MaxBatch)
	}

	example := s.model.Config().Example
	if req.Shape != nil && !tensor.Shape(req.Shape).Equal(example) {
		return nil, &flow.ShapeError{Operand: "shape", Want: example.String(), Got: tensor.Shape(req.Shape).String()}
	}

	seed := int64(-1)
	if req.Seed != nil {
		seed = *req.Seed
	}

	j := &job{
		id:     uuid.NewString(),
		noise:  tensor.Randn(example.WithBatch(n), tensor.NewSource(seed)),
		config: cfg,
	}
	nullLabels := flow.Fill(s.model.NullClass(), n)
	if req.Unconditional {
		j.labels = nullLabels
		j.cond = nullLabels
	} else {
		j.labels = flow.Labels(req.Labels)
		j.cond = j.labels
		j.null = nullLabels
	}
	return j, nil
}

func (s *Server) run(ctx context.Context, j *job) (flow.Trajectory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return flow.Sample(ctx, s.model, j.noise, j.cond, j.null, j.config)
}

func (s *Server) response(j *job, traj flow.Trajectory, full bool) SampleResponse {
	final := traj.Final()
	resp := SampleResponse{
		ID:            j.id,
		Steps:         j.config.Steps,
		GuidanceScale: j.config.GuidanceScale,
		Labels:        j.labels,
		Shape:         final.Shape(),
		Final:         rows(final),
	}
	if full {
		resp.Trajectory = make([][][]float64, len(traj))
		for i, state := range traj {
			resp.Trajectory[i] = rows(state)
		}
	}
	return resp
}

func (s *Server) writeImage(c *echo.Context, format string, traj flow.Trajectory, nrow int) error {
	if nrow <= 0 {
		nrow = 4
	}
	var buf bytes.Buffer
	var err error
	contentType := "image/png"
	if format == "gif" {
		contentType = "image/gif"
		err = imageio.EncodeGIF(&buf, traj, nrow)
	} else {
		err = imageio.EncodePNG(&buf, traj, nrow)
	}
	if err != nil {
		return writeError(c, http.StatusBadRequest, errInvalidRequest, err.Error())
	}
	return writeBlob(c, http.StatusOK, contentType, buf.Bytes())
}

func rows(t *tensor.Tensor) [][]float64 {
	out := make([][]float64, t.Len())
	for i := range out {
		out[i] = append([]float64(nil), t.Row(i)...)
	}
	return out
}

func wantsStream(c *echo.Context) bool {
	q := c.QueryParam("stream")
	return q == "1" || strings.EqualFold(q, "true")
}

// streamSample reports progress as server-sent events, ending with a
// "done" or "error" event.
func (s *Server) streamSample(c *echo.Context, j *job, req SampleRequest) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")

	flusher, ok := res.(http.Flusher)
	if !ok {
		return writeBadRequest(c, "streaming unsupported")
	}
	res.WriteHeader(http.StatusOK)

	send := func(ev ProgressEvent) {
		b, err := json.Marshal(ev)
		if err != nil {
			return
		}
		_, _ = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.Type, b)
		flusher.Flush()
	}

	j.config.Progress = func(step, total int) {
		send(ProgressEvent{Type: "progress", Step: step, Total: total})
	}
	traj, err := s.run(c.Request().Context(), j)
	if err != nil {
		_, errType := classify(err)
		send(ProgressEvent{Type: "error", Error: &ErrorBody{Message: err.Error(), Type: errType}})
		return nil
	}

	resp := s.response(j, traj, req.Trajectory)
	send(ProgressEvent{Type: "done", Result: &resp})
	return nil
}
