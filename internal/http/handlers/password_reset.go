package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/clubstack/memberhub/internal/config"
	"github.com/clubstack/memberhub/internal/domain/user"
	"github.com/clubstack/memberhub/internal/notifications"
	"github.com/clubstack/memberhub/internal/repo/postgres"
	"github.com/clubstack/memberhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// The generic reply never confirms whether the email exists.
const (
	resetGenericMessage = "If the email exists, a reset link has been sent."
	resetInvalidMessage = "Invalid or expired reset link."
)

type ResetUserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdatePasswordTx(ctx context.Context, tx pgx.Tx, userID, passwordHash string) error
}

type ResetTokenStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	Replace(ctx context.Context, row postgres.ResetTokenRow) error
	GetByHash(ctx context.Context, tokenHash string) (postgres.ResetTokenRow, error)
	Delete(ctx context.Context, id string) error
	DeleteTx(ctx context.Context, tx pgx.Tx, id string) error
}

type PasswordResetHandler struct {
	users    ResetUserStore
	tokens   ResetTokenStore
	notifier notifications.Notifier
	cfg      config.Config
}

func NewPasswordResetHandler(users ResetUserStore, tokens ResetTokenStore, notifier notifications.Notifier, cfg config.Config) *PasswordResetHandler {
	return &PasswordResetHandler{
		users:    users,
		tokens:   tokens,
		notifier: notifier,
		cfg:      cfg,
	}
}

func (h *PasswordResetHandler) ForgotPassword(ctx *gin.Context) {
	var req user.ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// same response shape as the success path
			h.respondForgot(ctx, resetGenericMessage)
			return
		}

		RespondInternal(ctx, "Could not process request")
		return
	}

	token, err := security.GenerateResetToken()

	if err != nil {
		RespondInternal(ctx, "Could not process request")
		return
	}

	now := time.Now().UTC()

	row := postgres.ResetTokenRow{
		ID:        uuid.NewString(),
		UserID:    foundUser.ID,
		TokenHash: security.HashResetToken(token),
		ExpiresAt: now.Add(h.cfg.ResetTokenTTL),
		CreatedAt: now,
	}

	// delete-then-insert keeps at most one usable token per user
	if err := h.tokens.Replace(cctx, row); err != nil {
		RespondInternal(ctx, "Could not process request")
		return
	}

	h.dispatchResetNotification(notifications.SendPasswordResetInput{
		Email:     foundUser.Email,
		Token:     token,
		ExpiresAt: row.ExpiresAt,
	})

	h.respondForgot(ctx, token)
}

// dispatchResetNotification is fire-and-forget: best effort, never awaited,
// and a provider failure must not affect the caller's response.
func (h *PasswordResetHandler) dispatchResetNotification(input notifications.SendPasswordResetInput) {
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := h.notifier.SendPasswordReset(sendCtx, input); err != nil {
			slog.Default().Warn("password reset notification failed", "err", err)
		}
	}()
}

func (h *PasswordResetHandler) respondForgot(ctx *gin.Context, result string) {
	if h.cfg.Testing {
		ctx.JSON(http.StatusOK, gin.H{
			"message":    "Reset link sent (test mode).",
			"test_token": result,
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": resetGenericMessage})
}

func (h *PasswordResetHandler) ResetPassword(ctx *gin.Context) {
	var req user.ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	row, err := h.tokens.GetByHash(cctx, security.HashResetToken(req.Token))

	if err != nil {
		if errors.Is(err, postgres.ErrResetTokenNotFound) {
			RespondBadRequest(ctx, resetInvalidMessage, nil)
			return
		}

		RespondInternal(ctx, "Could not reset password")
		return
	}

	// both sides of the comparison are absolute UTC instants
	if time.Now().UTC().After(row.ExpiresAt) {
		if err := h.tokens.Delete(cctx, row.ID); err != nil {
			slog.Default().Warn("could not delete expired reset token", "err", err)
		}

		RespondBadRequest(ctx, resetInvalidMessage, nil)
		return
	}

	newHash, err := security.HashPassword(req.NewPassword)

	if err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	// overwrite the password and consume the token atomically

	tx, err := h.tokens.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	if err := h.users.UpdatePasswordTx(cctx, tx, row.UserID, newHash); err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	if err := h.tokens.DeleteTx(cctx, tx, row.ID); err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	if err := tx.Commit(cctx); err != nil {
		RespondInternal(ctx, "Could not reset password")
		return
	}

	updated, err := h.users.GetByID(cctx, row.UserID)

	if err != nil {
		// the reset itself committed; still report success
		ctx.JSON(http.StatusOK, gin.H{"message": "Password successfully reset."})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Password successfully reset.",
		"user":    updated.Summary(),
	})
}
