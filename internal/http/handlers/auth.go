package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/writersinn/taskhub/internal/auth"
	"github.com/writersinn/taskhub/internal/config"
	"github.com/writersinn/taskhub/internal/domain/job"
	"github.com/writersinn/taskhub/internal/domain/session"
	"github.com/writersinn/taskhub/internal/domain/user"
	"github.com/writersinn/taskhub/internal/jobs"
	"github.com/writersinn/taskhub/internal/repo/postgres"
	"github.com/writersinn/taskhub/internal/security"
)

type LoginUserStore interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, s session.Session) error
	Consume(ctx context.Context, tokenHash string) (session.Session, error)
}

type JobEnqueuer interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
}

type AuthHandler struct {
	users    LoginUserStore
	sessions SessionStore
	jobsRepo JobEnqueuer
	magic    *auth.MagicLink
	jwt      *auth.Manager
	cfg      config.Config
}

func NewAuthHandler(users LoginUserStore, sessions SessionStore, jobsRepo JobEnqueuer, magic *auth.MagicLink, jwtManager *auth.Manager, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		jobsRepo: jobsRepo,
		magic:    magic,
		jwt:      jwtManager,
		cfg:      cfg,
	}
}

type LoginRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name" binding:"omitempty,min=2"`
}

// Login requests a magic link. The user is created on first login so the
// writer never fills a separate signup form. The response is the same
// whether or not the email was known before.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)

	if errors.Is(err, user.ErrNotFound) {
		u, err = h.users.Create(cctx, newLoginUser(req))

		// a concurrent login may have created the row first
		if errors.Is(err, user.ErrEmailTaken) {
			u, err = h.users.GetByEmail(cctx, req.Email)
		}
	}

	if err != nil {
		RespondInternal(ctx, "Could not start login")
		return
	}

	raw, hash, err := h.magic.NewToken()

	if err != nil {
		RespondInternal(ctx, "Could not start login")
		return
	}

	s := session.New(u.ID, hash, h.cfg.MagicLinkTTL())

	err = h.sessions.Create(cctx, s)

	if err != nil {
		RespondInternal(ctx, "Could not start login")
		return
	}

	payload := jobs.LoginMagicLinkPayload{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		VerifyURL:   h.cfg.FrontendOrigin + "/verify/" + raw,
		ExpiresAt:   s.ExpiresAt,
		RequestedAt: time.Now().UTC(),
	}

	rawPayload, err := jobs.EncodePayload(jobs.JobLoginMagicLink, payload)

	if err != nil {
		RespondInternal(ctx, "Could not start login")
		return
	}

	key := "login:link:" + s.ID
	uid := u.ID

	_, err = h.jobsRepo.Create(cctx, job.CreateRequest{
		Type:           string(jobs.JobLoginMagicLink),
		Payload:        rawPayload,
		RunAt:          time.Now().UTC(),
		MaxAttempts:    10,
		IdempotencyKey: &key,
		UserID:         &uid,
	})

	if err != nil && !postgres.IsUniqueViolation(err) {
		RespondInternal(ctx, "Could not start login")
		fmt.Println(err)
		return
	}

	ctx.JSON(http.StatusAccepted, gin.H{
		"message":   "Check your email for a sign-in link.",
		"expiresAt": s.ExpiresAt,
	})
}

func newLoginUser(req LoginRequest) user.User {
	name := strings.TrimSpace(req.Name)

	if name == "" {
		// fall back to the mailbox name until the writer sets one
		name, _, _ = strings.Cut(req.Email, "@")
	}

	now := time.Now().UTC()

	return user.User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Name:      name,
		Role:      "user",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Verify consumes a magic link token. The token is single-use; a replay
// gets 401 link_used.
func (h *AuthHandler) Verify(ctx *gin.Context) {
	raw := ctx.Param("token")

	if strings.TrimSpace(raw) == "" {
		RespondBadRequest(ctx, "token is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	s, err := h.sessions.Consume(cctx, h.magic.Hash(raw))

	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			RespondNotFound(ctx, "Unknown sign-in link")
		case errors.Is(err, session.ErrExpired):
			RespondUnAuthorized(ctx, "link_expired", "This sign-in link has expired. Request a new one.")
		case errors.Is(err, session.ErrConsumed):
			RespondUnAuthorized(ctx, "link_used", "This sign-in link was already used. Request a new one.")
		default:
			RespondInternal(ctx, "Could not verify sign-in link")
		}
		return
	}

	u, err := h.users.GetByID(cctx, s.UserID)

	if err != nil {
		RespondInternal(ctx, "Could not verify sign-in link")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin exchanges the seeded admin credentials for a bearer token.
func (h *AuthHandler) AdminLogin(ctx *gin.Context) {
	var req AdminLoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		// same response for unknown email and bad password
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "invalid_credentials", "Invalid email or password")
			return
		}

		RespondInternal(ctx, "Could not log in")
		return
	}

	if u.Role != "admin" || u.PasswordHash == "" || security.CheckPassword(u.PasswordHash, req.Password) != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Invalid email or password")
		return
	}

	accessToken, err := h.jwt.GenerateAccessToken(u.ID, u.Email, u.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": accessToken,
		"tokenType":   "Bearer",
		"expiresIn":   h.cfg.JWTAccessTTLMinutes * 60,
	})
}
