package models

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ChatResponse struct {
	Message string      `json:"message"`
	Sources []SourceRef `json:"sources"`
}

// ModelInfo describes one selectable completion model, including the context
// window the retrieval orchestrator budgets against.
type ModelInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	ContextWindow int    `json:"contextWindow"`
}

type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
