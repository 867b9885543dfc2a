package handlers

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"rental-backend/internal/logger"
	"rental-backend/internal/models"
	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

const (
	defaultLoginHistory = 20
	maxLoginHistory     = 100
)

// LoginLogStore is implemented by repositories.LoginLogRepository
type LoginLogStore interface {
	Create(ctx context.Context, userID int, ipAddress, userAgent string) (*models.LoginLog, error)
	ListForUser(ctx context.Context, userID, limit int) ([]*models.LoginLog, error)
}

type AuthHandler struct {
	Service   *services.UserService
	LoginLogs LoginLogStore
}

func NewAuthHandler(s *services.UserService, loginLogs LoginLogStore) *AuthHandler {
	return &AuthHandler{Service: s, LoginLogs: loginLogs}
}

// Signup handles user registration
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	authResp, err := h.Service.Signup(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, authResp)
}

// Login handles user authentication
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	log := logger.WithComponent("auth").WithFields(logrus.Fields{
		"email": req.Email,
		"ip":    getIPAddress(r),
	})

	authResp, err := h.Service.Login(r.Context(), &req)
	if err != nil {
		log.Warn("login failed")
		utils.Error(w, err)
		return
	}

	// Login history is informational; a failed insert does not fail the login
	if h.LoginLogs != nil {
		if _, err := h.LoginLogs.Create(r.Context(), authResp.User.ID, getIPAddress(r), r.UserAgent()); err != nil {
			log.WithError(err).Warn("failed to record login")
		}
	}

	utils.JSON(w, http.StatusOK, authResp)
}

// Me returns the authenticated account
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	user, err := h.Service.GetUser(r.Context(), p.UserID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

// Logins lists the caller's recent sign-ins
// GET /api/me/logins?limit=20
func (h *AuthHandler) Logins(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", defaultLoginHistory)
	if !ok {
		return
	}
	if limit <= 0 || limit > maxLoginHistory {
		limit = defaultLoginHistory
	}

	logs, err := h.LoginLogs.ListForUser(r.Context(), p.UserID, limit)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if logs == nil {
		logs = []*models.LoginLog{}
	}
	utils.JSON(w, http.StatusOK, logs)
}

// getIPAddress extracts the client IP, preferring the first X-Forwarded-For hop
func getIPAddress(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
