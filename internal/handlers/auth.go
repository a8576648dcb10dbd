package handlers

import (
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/HollandReese/bulwark/internal/auth"
	pkghttp "github.com/HollandReese/bulwark/pkg/http"
)

// AuthHandler issues admin tokens against the bootstrap credential
type AuthHandler struct {
	tokenManager  *auth.TokenManager
	adminUsername string
	adminPassHash string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(tokenManager *auth.TokenManager, adminUsername, adminPassHash string) *AuthHandler {
	return &AuthHandler{
		tokenManager:  tokenManager,
		adminUsername: adminUsername,
		adminPassHash: adminPassHash,
	}
}

// LoginRequest represents the admin login request body
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued bearer token
type LoginResponse struct {
	Token string `json:"token"`
}

// Login authenticates the administrator and issues a bearer token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if h.adminUsername == "" || h.adminPassHash == "" {
		pkghttp.WriteUnauthorized(w, "invalid credentials")
		return
	}

	// Always run the bcrypt comparison so a wrong username costs the same
	// as a wrong password
	err := bcrypt.CompareHashAndPassword([]byte(h.adminPassHash), []byte(req.Password))
	if req.Username != h.adminUsername || err != nil {
		pkghttp.WriteUnauthorized(w, "invalid credentials")
		return
	}

	token, err := h.tokenManager.GenerateToken(req.Username)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to issue token")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{Token: token})
}
