package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"tablewood-catering-services/internal/auth"
	"tablewood-catering-services/pkg/response"
)

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLogin exchanges back-office credentials for a bearer token scoped to
// the admin's tenant.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "Email and password are required")
		return
	}

	var (
		adminID      int64
		tenantID     int64
		passwordHash string
		name         string
		tenantActive bool
	)
	err := h.DB.QueryRow(r.Context(), `
		select a.id, a.tenant_id, a.password_hash, a.name, t.is_active
		from admin_users a
		join tenants t on t.id = a.tenant_id
		where lower(a.email) = $1
	`, email).Scan(&adminID, &tenantID, &passwordHash, &name, &tenantActive)
	if errors.Is(err, pgx.ErrNoRows) {
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}
	if err != nil {
		h.Logger.Error("admin lookup failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}
	if !tenantActive {
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(req.Password)) != nil {
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
		return
	}

	expiry := time.Duration(h.Config.JWTExpirySeconds) * time.Second
	token, err := auth.SignAccessToken(adminID, tenantID, email, h.Config.JWTSecret, expiry)
	if err != nil {
		h.Logger.Error("token signing failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed")
		return
	}

	response.Success(w, map[string]any{
		"token":     token,
		"expiresIn": int64(expiry.Seconds()),
		"admin": map[string]any{
			"id":    adminID,
			"email": email,
			"name":  name,
		},
	})
}

// AdminMe returns the authenticated admin's profile and tenant.
func (h *Handler) AdminMe(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	var (
		name       string
		tenantCode string
		tenantName string
	)
	err := h.DB.QueryRow(r.Context(), `
		select a.name, t.code, t.name
		from admin_users a
		join tenants t on t.id = a.tenant_id
		where a.id = $1
	`, authCtx.AdminID).Scan(&name, &tenantCode, &tenantName)
	if err != nil {
		h.Logger.Error("admin profile lookup failed", zap.Error(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load profile")
		return
	}

	response.Success(w, map[string]any{
		"id":    authCtx.AdminID,
		"email": authCtx.Email,
		"name":  name,
		"tenant": map[string]any{
			"id":   authCtx.TenantID,
			"code": tenantCode,
			"name": tenantName,
		},
	})
}
