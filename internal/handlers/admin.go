package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/victorwp288/gioia-beauty-sub001/libs/auth"
)

// AdminAuth issues and verifies the dashboard session token. The salon
// has a single operator account, so login is password-only.
type AdminAuth struct {
	passwordHash []byte
	jwtSecret    string
	tokenTTL     time.Duration
	logger       *slog.Logger
}

func NewAdminAuth(passwordHash, jwtSecret string, tokenTTL time.Duration, logger *slog.Logger) *AdminAuth {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AdminAuth{
		passwordHash: []byte(passwordHash),
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
		logger:       logger,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Login exchanges the operator password for a bearer token.
// POST /api/admin/login
func (a *AdminAuth) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(a.passwordHash) == 0 {
		a.logger.Error("admin login attempted with no password hash configured")
		writeError(w, http.StatusInternalServerError, "admin login not configured")
		return
	}
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := time.Now().UTC()
	exp := now.Add(a.tokenTTL)
	token, err := auth.SignHS256(auth.Claims{
		Sub:  "admin",
		Role: "admin",
		Iat:  now.Unix(),
		Exp:  exp.Unix(),
	}, a.jwtSecret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Success:   true,
		Token:     token,
		ExpiresAt: exp.Format(time.RFC3339),
	})
}

// Require wraps dashboard handlers with bearer-token verification.
func (a *AdminAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		claims, err := auth.ParseAndVerifyHS256(token, a.jwtSecret)
		if err != nil || claims.Role != "admin" {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
