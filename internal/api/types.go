package api

// SampleRequest is the body of POST /v1/samples.
type SampleRequest struct {
	// Labels selects one class per generated example.
	Labels []int `json:"labels"`

	// Count is the batch size for unconditional requests without labels.
	Count int `json:"count,omitempty"`

	Steps         *int     `json:"steps,omitempty"`
	GuidanceScale *float64 `json:"guidance_scale,omitempty"`
	Seed          *int64   `json:"seed,omitempty"`

	// Unconditional samples from the null class without guidance.
	Unconditional bool `json:"unconditional,omitempty"`

	// Shape is the per-example shape of the noise. It defaults to the
	// model's shape and must match it.
	Shape []int `json:"shape,omitempty"`

	// Trajectory returns every sampler state instead of only the last.
	Trajectory bool `json:"trajectory,omitempty"`

	// Format is "json" (default), "png" (final grid) or "gif" (animation).
	Format string `json:"format,omitempty"`

	// NRow is the grid width for image formats.
	NRow int `json:"nrow,omitempty"`
}

// SampleResponse is the JSON result of POST /v1/samples.
type SampleResponse struct {
	ID            string        `json:"id"`
	Steps         int           `json:"steps"`
	GuidanceScale float64       `json:"guidance_scale"`
	Labels        []int         `json:"labels"`
	Shape         []int         `json:"shape"`
	Final         [][]float64   `json:"final,omitempty"`
	Trajectory    [][][]float64 `json:"trajectory,omitempty"`
}

// ModelInfo is the result of GET /v1/model.
type ModelInfo struct {
	Shape         []int   `json:"shape"`
	NumClasses    int     `json:"num_classes"`
	NullClass     int     `json:"null_class"`
	Steps         int     `json:"default_steps"`
	GuidanceScale float64 `json:"default_guidance_scale"`
	MaxBatch      int     `json:"max_batch"`
	MaxSteps      int     `json:"max_steps"`
}

// ProgressEvent is streamed as server-sent events when ?stream=true.
type ProgressEvent struct {
	Type  string `json:"type"`
	Step  int    `json:"step,omitempty"`
	Total int    `json:"total,omitempty"`

	Result *SampleResponse `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}
