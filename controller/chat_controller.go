package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JLAD75/fileManagerRAG/models"
	"github.com/JLAD75/fileManagerRAG/services"
)

// ChatController handles the question-answering endpoints.
type ChatController struct {
	retrieval    *services.RetrievalService
	chat         *services.ChatService
	defaultModel string
	logger       *slog.Logger
}

func NewChatController(retrieval *services.RetrievalService, chat *services.ChatService, defaultModel string, logger *slog.Logger) *ChatController {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatController{
		retrieval:    retrieval,
		chat:         chat,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// Chat is the handler for POST /api/chat. An empty library is a normal
// answer with no sources; only a completion failure is a server error.
func (c *ChatController) Chat(ctx *gin.Context) {
	var req models.ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Message is required"})
		return
	}

	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}

	userID := currentUserID(ctx)
	result := c.retrieval.Retrieve(ctx.Request.Context(), req.Message, userID, modelID)
	if len(result.Chunks) == 0 {
		ctx.JSON(http.StatusOK, models.ChatResponse{Message: result.Message, Sources: []models.SourceRef{}})
		return
	}

	answer, err := c.chat.Generate(ctx.Request.Context(), req.Message, result.Chunks, modelID)
	if err != nil {
		c.logger.Error("failed to generate answer", "model", modelID, "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}

	ctx.JSON(http.StatusOK, models.ChatResponse{Message: answer, Sources: result.Sources})
}

// Models is the handler for GET /api/chat/models.
func (c *ChatController) Models(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.ModelsResponse{Models: services.ModelCatalog()})
}
