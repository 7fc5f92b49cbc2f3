package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/captionhub/internal/auth"
	"github.com/geocoder89/captionhub/internal/domain/user"
	"github.com/geocoder89/captionhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type UsersHandler struct {
	users UserStore
	log   *slog.Logger
}

func NewUsersHandler(users UserStore, log *slog.Logger) *UsersHandler {
	return &UsersHandler{users: users, log: log}
}

// List is mounted behind RequireRole(elevated).
func (h *UsersHandler) List(ctx *gin.Context) {
	cctx, cancel := requestTimeout(ctx, storeTimeout)
	defer cancel()

	all, err := h.users.List(cctx)
	if err != nil {
		RespondInternal(ctx, h.log, "Could not list users", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"users": user.PublicList(all),
		"count": len(all),
	})
}

func (h *UsersHandler) Get(ctx *gin.Context) {
	id, ok := h.targetID(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestTimeout(ctx, storeTimeout)
	defer cancel()

	u, err := h.users.GetByID(cctx, id)
	if err != nil {
		h.respondStoreErr(ctx, "Could not load user", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u.Public()})
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	id, ok := h.targetID(ctx)
	if !ok {
		return
	}

	var req user.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := requestTimeout(ctx, storeTimeout)
	defer cancel()

	var (
		u   user.User
		err error
	)
	if req.Empty() {
		u, err = h.users.GetByID(cctx, id)
	} else {
		u, err = h.users.Update(cctx, id, req)
	}
	if err != nil {
		h.respondStoreErr(ctx, "Could not update user", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    u.Public(),
	})
}

// Delete removes the account and, through the store, its captions.
func (h *UsersHandler) Delete(ctx *gin.Context) {
	id, ok := h.targetID(ctx)
	if !ok {
		return
	}

	cctx, cancel := requestTimeout(ctx, storeTimeout)
	defer cancel()

	if err := h.users.Delete(cctx, id); err != nil {
		h.respondStoreErr(ctx, "Could not delete user", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// UpdateRole is mounted behind RequireRole(elevated).
func (h *UsersHandler) UpdateRole(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		RespondNotFound(ctx, msgUserNotFound)
		return
	}

	var req user.UpdateRoleRequest
	if !BindJSON(ctx, &req) {
		return
	}

	role, err := user.ParseRole(req.Role)
	if err != nil {
		RespondBadRequest(ctx, "Invalid role")
		return
	}

	cctx, cancel := requestTimeout(ctx, storeTimeout)
	defer cancel()

	u, err := h.users.UpdateRole(cctx, id, role)
	if err != nil {
		h.respondStoreErr(ctx, "Could not update role", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User role updated successfully",
		"user":    u.Public(),
	})
}

// targetID resolves :id and enforces self-or-elevated access. Anyone else
// gets the same 404 as a missing user, so ids cannot be probed.
func (h *UsersHandler) targetID(ctx *gin.Context) (string, bool) {
	caller, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Authentication required")
		return "", false
	}

	id, ok := pathID(ctx)
	if !ok || !canAccess(caller, id) {
		RespondNotFound(ctx, msgUserNotFound)
		return "", false
	}

	return id, true
}

func canAccess(caller auth.Identity, targetID string) bool {
	return caller.UserID == targetID || caller.Role == user.RoleElevated
}

func (h *UsersHandler) respondStoreErr(ctx *gin.Context, internalMsg string, err error) {
	switch {
	case errors.Is(err, user.ErrNotFound):
		RespondNotFound(ctx, msgUserNotFound)
	case errors.Is(err, user.ErrInvalidRole):
		RespondBadRequest(ctx, "Invalid role")
	default:
		RespondInternal(ctx, h.log, internalMsg, err)
	}
}
