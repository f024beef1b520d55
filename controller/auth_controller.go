package controller

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/JLAD75/fileManagerRAG/auth"
	"github.com/JLAD75/fileManagerRAG/models"
	"github.com/JLAD75/fileManagerRAG/store"
)

// AuthController handles account registration and login.
type AuthController struct {
	store   *store.Store
	adapter *auth.Adapter
	logger  *slog.Logger
}

func NewAuthController(st *store.Store, adapter *auth.Adapter, logger *slog.Logger) *AuthController {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthController{store: st, adapter: adapter, logger: logger}
}

// Register is the handler for POST /api/auth/register.
func (c *AuthController) Register(ctx *gin.Context) {
	var req models.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body: " + err.Error()})
		return
	}

	hash, err := c.adapter.HashPassword(req.Password)
	if err != nil {
		c.logger.Error("failed to hash password", "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}

	user := models.User{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := c.store.CreateUser(ctx.Request.Context(), user); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			ctx.JSON(http.StatusConflict, models.ErrorResponse{Message: "User already exists"})
			return
		}
		c.logger.Error("failed to create user", "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}

	token, err := c.adapter.GenerateToken(user.ID, user.Email)
	if err != nil {
		c.logger.Error("failed to issue token", "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}

	ctx.JSON(http.StatusCreated, models.AuthResponse{Token: token, User: user})
}

// Login is the handler for POST /api/auth/login. Unknown email and wrong
// password get the same answer so the endpoint leaks nothing about which
// accounts exist.
func (c *AuthController) Login(ctx *gin.Context) {
	var req models.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "Invalid request body: " + err.Error()})
		return
	}

	user, err := c.store.GetUserByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			ctx.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid credentials"})
			return
		}
		c.logger.Error("failed to query user", "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}

	if !c.adapter.VerifyPassword(req.Password, user.PasswordHash) {
		ctx.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "Invalid credentials"})
		return
	}

	token, err := c.adapter.GenerateToken(user.ID, user.Email)
	if err != nil {
		c.logger.Error("failed to issue token", "error", err)
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "Server error"})
		return
	}

	ctx.JSON(http.StatusOK, models.AuthResponse{Token: token, User: user})
}
