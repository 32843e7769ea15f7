package models

// MessagesResponse carries the full conversation of the caller's session.
type MessagesResponse struct {
	Messages []ChatTurn `json:"messages"`
}

// ErrorResponse is the JSON body of every 4xx/5xx from the API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Version       string `json:"version"`
	PipelineReady bool   `json:"pipeline_ready"`
}
