package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/clubstack/memberhub/internal/config"
	"github.com/clubstack/memberhub/internal/domain/user"
	"github.com/clubstack/memberhub/internal/http/middlewares"
	"github.com/clubstack/memberhub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string, role user.Role) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(username string) (string, error)
}

type AuthHandler struct {
	users UserStore
	jwt   TokenIssuer
}

func NewAuthHandler(users UserStore, jwt TokenIssuer) *AuthHandler {
	return &AuthHandler{
		users: users,
		jwt:   jwt,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	// default role for new users

	u, err := h.users.Create(cctx, req.Username, req.Email, hash, user.RoleUser)

	if err != nil {
		if errors.Is(err, user.ErrUserExists) {
			RespondConflict(ctx, "user_exists", "Username or email is already taken.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, u.Summary())
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindForm(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByUsername(cctx, req.Username)
	if err != nil {
		// burn a comparison so the unknown-username path is not
		// observably cheaper than a failed verification
		security.DummyCheckPassword(req.Password)
		RespondUnAuthorized(ctx, "invalid_credentials", "Username or password is incorrect.")
		return
	}

	err = security.CheckPassword(foundUser.PasswordHash, req.Password)

	if err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Username or password is incorrect.")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(foundUser.Username)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"token_type":   "bearer",
	})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	ctx.JSON(http.StatusOK, u.Summary())
}
