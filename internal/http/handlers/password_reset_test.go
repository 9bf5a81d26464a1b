package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/clubstack/memberhub/internal/config"
	"github.com/clubstack/memberhub/internal/domain/user"
	"github.com/clubstack/memberhub/internal/http/handlers"
	"github.com/clubstack/memberhub/internal/notifications"
	"github.com/clubstack/memberhub/internal/repo/postgres"
	"github.com/clubstack/memberhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

type fakeResetUserStore struct {
	getByEmailFn       func(ctx context.Context, email string) (user.User, error)
	getByIDFn          func(ctx context.Context, id string) (user.User, error)
	updatePasswordTxFn func(ctx context.Context, tx pgx.Tx, userID, passwordHash string) error
}

func (f *fakeResetUserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return f.getByEmailFn(ctx, email)
}

func (f *fakeResetUserStore) GetByID(ctx context.Context, id string) (user.User, error) {
	return f.getByIDFn(ctx, id)
}

func (f *fakeResetUserStore) UpdatePasswordTx(ctx context.Context, tx pgx.Tx, userID, passwordHash string) error {
	return f.updatePasswordTxFn(ctx, tx, userID, passwordHash)
}

// fakeTx satisfies pgx.Tx through the embedded interface; only Commit and
// Rollback are ever called by the handler.
type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.commits++
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rollbacks++
	return nil
}

type fakeResetTokenStore struct {
	tx          *fakeTx
	replaceFn   func(ctx context.Context, row postgres.ResetTokenRow) error
	getByHashFn func(ctx context.Context, tokenHash string) (postgres.ResetTokenRow, error)
	deleted     []string
	deletedTx   []string
}

func (f *fakeResetTokenStore) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return f.tx, nil
}

func (f *fakeResetTokenStore) Replace(ctx context.Context, row postgres.ResetTokenRow) error {
	return f.replaceFn(ctx, row)
}

func (f *fakeResetTokenStore) GetByHash(ctx context.Context, tokenHash string) (postgres.ResetTokenRow, error) {
	return f.getByHashFn(ctx, tokenHash)
}

func (f *fakeResetTokenStore) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeResetTokenStore) DeleteTx(ctx context.Context, tx pgx.Tx, id string) error {
	f.deletedTx = append(f.deletedTx, id)
	return nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []notifications.SendPasswordResetInput
	ready chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{ready: make(chan struct{}, 1)}
}

func (f *fakeNotifier) SendPasswordReset(ctx context.Context, input notifications.SendPasswordResetInput) error {
	f.mu.Lock()
	f.sent = append(f.sent, input)
	f.mu.Unlock()
	select {
	case f.ready <- struct{}{}:
	default:
	}
	return nil
}

func newResetRouter(h *handlers.PasswordResetHandler) *gin.Engine {
	r := gin.New()
	r.POST("/auth/forgot-password", h.ForgotPassword)
	r.POST("/auth/reset-password", h.ResetPassword)
	return r
}

func TestForgotPassword_ResponsesDoNotRevealAccounts(t *testing.T) {
	alice := user.User{ID: "u-1", Username: "alice", Email: "alice@example.com"}

	users := &fakeResetUserStore{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			if email == alice.Email {
				return alice, nil
			}
			return user.User{}, user.ErrNotFound
		},
	}
	tokens := &fakeResetTokenStore{
		replaceFn: func(ctx context.Context, row postgres.ResetTokenRow) error { return nil },
	}
	r := newResetRouter(handlers.NewPasswordResetHandler(users, tokens, newFakeNotifier(), config.Config{ResetTokenTTL: 15 * time.Minute}))

	known := postJSON(r, "/auth/forgot-password", `{"email":"alice@example.com"}`)
	unknown := postJSON(r, "/auth/forgot-password", `{"email":"nobody@example.com"}`)

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("got statuses %d and %d, want 200 for both", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Fatalf("responses differ:\n%s\n%s", known.Body.String(), unknown.Body.String())
	}
}

func TestForgotPassword_StoresHashNotToken(t *testing.T) {
	alice := user.User{ID: "u-1", Username: "alice", Email: "alice@example.com"}

	var stored postgres.ResetTokenRow

	users := &fakeResetUserStore{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			return alice, nil
		},
	}
	tokens := &fakeResetTokenStore{
		replaceFn: func(ctx context.Context, row postgres.ResetTokenRow) error {
			stored = row
			return nil
		},
	}
	notifier := newFakeNotifier()
	cfg := config.Config{Testing: true, ResetTokenTTL: 15 * time.Minute}
	r := newResetRouter(handlers.NewPasswordResetHandler(users, tokens, notifier, cfg))

	w := postJSON(r, "/auth/forgot-password", `{"email":"alice@example.com"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	// test mode surfaces the plaintext token so flows can be exercised
	// without an email provider
	var resp struct {
		TestToken string `json:"test_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v body=%s", err, w.Body.String())
	}
	if resp.TestToken == "" {
		t.Fatal("expected test_token in test mode")
	}

	if stored.UserID != alice.ID {
		t.Fatalf("stored row for user %q, want %q", stored.UserID, alice.ID)
	}
	if stored.TokenHash == resp.TestToken {
		t.Fatal("plaintext token must never be persisted")
	}
	if stored.TokenHash != security.HashResetToken(resp.TestToken) {
		t.Fatal("stored hash does not match the issued token")
	}
	if until := time.Until(stored.ExpiresAt); until < 14*time.Minute || until > 16*time.Minute {
		t.Fatalf("unexpected expiry %v from now", until)
	}

	select {
	case <-notifier.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never dispatched")
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.sent) != 1 || notifier.sent[0].Token != resp.TestToken {
		t.Fatalf("unexpected notifications: %+v", notifier.sent)
	}
}

func TestResetPassword_Success(t *testing.T) {
	alice := user.User{ID: "u-1", Username: "alice", Email: "alice@example.com", Role: user.RoleUser}
	token := "plaintext-reset-token"

	var updatedHash string

	users := &fakeResetUserStore{
		getByIDFn: func(ctx context.Context, id string) (user.User, error) {
			return alice, nil
		},
		updatePasswordTxFn: func(ctx context.Context, tx pgx.Tx, userID, passwordHash string) error {
			if userID != alice.ID {
				t.Fatalf("update for user %q, want %q", userID, alice.ID)
			}
			updatedHash = passwordHash
			return nil
		},
	}
	tx := &fakeTx{}
	tokens := &fakeResetTokenStore{
		tx: tx,
		getByHashFn: func(ctx context.Context, tokenHash string) (postgres.ResetTokenRow, error) {
			if tokenHash != security.HashResetToken(token) {
				return postgres.ResetTokenRow{}, postgres.ErrResetTokenNotFound
			}
			return postgres.ResetTokenRow{
				ID:        "t-1",
				UserID:    alice.ID,
				TokenHash: tokenHash,
				ExpiresAt: time.Now().UTC().Add(10 * time.Minute),
			}, nil
		},
	}
	r := newResetRouter(handlers.NewPasswordResetHandler(users, tokens, newFakeNotifier(), config.Config{}))

	w := postJSON(r, "/auth/reset-password", `{"token":"plaintext-reset-token","new_password":"brand-new-pass"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if err := security.CheckPassword(updatedHash, "brand-new-pass"); err != nil {
		t.Fatalf("stored hash does not verify the new password: %v", err)
	}
	if tx.commits != 1 {
		t.Fatalf("got %d commits, want 1", tx.commits)
	}
	if len(tokens.deletedTx) != 1 || tokens.deletedTx[0] != "t-1" {
		t.Fatalf("token was not consumed in the transaction: %+v", tokens.deletedTx)
	}

	var resp struct {
		Message string       `json:"message"`
		User    user.Summary `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v body=%s", err, w.Body.String())
	}
	if resp.User.Username != "alice" {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}
}

func TestResetPassword_UnknownToken(t *testing.T) {
	tokens := &fakeResetTokenStore{
		getByHashFn: func(ctx context.Context, tokenHash string) (postgres.ResetTokenRow, error) {
			return postgres.ResetTokenRow{}, postgres.ErrResetTokenNotFound
		},
	}
	r := newResetRouter(handlers.NewPasswordResetHandler(&fakeResetUserStore{}, tokens, newFakeNotifier(), config.Config{}))

	w := postJSON(r, "/auth/reset-password", `{"token":"nope","new_password":"brand-new-pass"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
}

func TestResetPassword_ExpiredTokenIsDeleted(t *testing.T) {
	tokens := &fakeResetTokenStore{
		getByHashFn: func(ctx context.Context, tokenHash string) (postgres.ResetTokenRow, error) {
			return postgres.ResetTokenRow{
				ID:        "t-1",
				UserID:    "u-1",
				TokenHash: tokenHash,
				ExpiresAt: time.Now().UTC().Add(-time.Minute),
			}, nil
		},
	}
	r := newResetRouter(handlers.NewPasswordResetHandler(&fakeResetUserStore{}, tokens, newFakeNotifier(), config.Config{}))

	w := postJSON(r, "/auth/reset-password", `{"token":"stale","new_password":"brand-new-pass"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
	if len(tokens.deleted) != 1 || tokens.deleted[0] != "t-1" {
		t.Fatalf("expired token was not purged: %+v", tokens.deleted)
	}
}
