package services

import (
	"strings"

	"github.com/JLAD75/fileManagerRAG/models"
)

// defaultContextTokens is assumed for models missing from the table.
const defaultContextTokens = 8192

// ContextWindowTokens returns the declared context window of a completion
// model, in tokens.
func ContextWindowTokens(modelID string) int {
	switch {
	case strings.HasPrefix(modelID, "gpt-5"):
		return 400000
	case strings.Contains(modelID, "gpt-4o"), strings.Contains(modelID, "gpt-4-turbo"):
		return 128000
	case strings.Contains(modelID, "gpt-3.5-turbo"):
		return 16385
	case strings.Contains(modelID, "gemini"):
		return 1048576
	default:
		return defaultContextTokens
	}
}

// MaxContextChars converts a model's context window into the retrieval
// character budget: half the token capacity is reserved for input, at a
// 4-characters-per-token heuristic.
func MaxContextChars(modelID string) int {
	return ContextWindowTokens(modelID) / 2 * 4
}

// ModelCatalog lists the selectable completion models exposed to the UI.
func ModelCatalog() []models.ModelInfo {
	return []models.ModelInfo{
		{ID: "gpt-4o", Name: "GPT-4o", Description: "Le plus récent et performant", ContextWindow: 128000},
		{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Description: "Rapide et économique", ContextWindow: 128000},
		{ID: "gpt-4-turbo", Name: "GPT-4 Turbo", Description: "Puissant avec large contexte", ContextWindow: 128000},
		{ID: "gpt-4", Name: "GPT-4", Description: "Modèle classique GPT-4", ContextWindow: 8192},
		{ID: "gpt-3.5-turbo", Name: "GPT-3.5 Turbo", Description: "Économique et rapide", ContextWindow: 16385},
		{ID: "gemini-2.5-flash", Name: "Gemini 2.5 Flash", Description: "Modèle Google à très large contexte", ContextWindow: 1048576},
	}
}
