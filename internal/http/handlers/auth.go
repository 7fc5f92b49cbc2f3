package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/captionhub/internal/auth"
	"github.com/geocoder89/captionhub/internal/domain/user"
	"github.com/geocoder89/captionhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgUserNotFound       = "User not found"
	storeTimeout          = 3 * time.Second
)

type AuthHandler struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	log    *slog.Logger
}

func NewAuthHandler(users UserStore, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req user.SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		RespondInternal(ctx, h.log, "Could not create user", err)
		return
	}

	cctx, cancel := requestTimeout(ctx, storeTimeout)
	defer cancel()

	u, err := h.users.Create(cctx, req.Email, hash, req.Name, user.RoleStandard)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondBadRequest(ctx, "User already exists")
			return
		}

		RespondInternal(ctx, h.log, "Could not create user", err)
		return
	}

	token, err := h.tokens.Issue(auth.IdentityOf(u))
	if err != nil {
		RespondInternal(ctx, h.log, "Could not generate token", err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"token":   token,
		"user":    u.Public(),
	})
}

// Login answers both unknown email and wrong password with the same 401.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx, storeTimeout)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			RespondInternal(ctx, h.log, "Login failed. Please try again.", err)
			return
		}

		h.hasher.BurnCheck(req.Password)
		RespondUnauthorized(ctx, msgInvalidCredentials)
		return
	}

	if err := h.hasher.Check(found.PasswordHash, req.Password); err != nil {
		RespondUnauthorized(ctx, msgInvalidCredentials)
		return
	}

	token, err := h.tokens.Issue(auth.IdentityOf(found))
	if err != nil {
		RespondInternal(ctx, h.log, "Could not generate token", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    found.Public(),
	})
}

// Profile re-reads the caller so the reply reflects the stored record, not
// the token claims.
func (h *AuthHandler) Profile(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return
	}

	cctx, cancel := requestTimeout(ctx, storeTimeout)
	defer cancel()

	u, err := h.users.GetByID(cctx, id.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, msgUserNotFound)
			return
		}

		RespondInternal(ctx, h.log, "Could not load profile", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u.Public()})
}

func requestTimeout(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}
