package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/HollandReese/bulwark/internal/services"
	pkghttp "github.com/HollandReese/bulwark/pkg/http"
)

// LoginOutcomeHandler receives login results from the authentication flow
type LoginOutcomeHandler struct {
	monitor *services.LoginMonitorService
}

// NewLoginOutcomeHandler creates a new LoginOutcomeHandler
func NewLoginOutcomeHandler(monitor *services.LoginMonitorService) *LoginOutcomeHandler {
	return &LoginOutcomeHandler{monitor: monitor}
}

// LoginOutcomeRequest is the payload the authentication collaborator posts
// after every login attempt
type LoginOutcomeRequest struct {
	IPAddress  string `json:"ip_address" validate:"required,ip"`
	Identifier string `json:"identifier" validate:"required"`
	Success    bool   `json:"success"`
	UserAgent  string `json:"user_agent"`
}

// LoginOutcomeResponse is the directive returned to the caller. Message,
// when set, overrides the client-facing response text.
type LoginOutcomeResponse struct {
	Proceed bool   `json:"proceed"`
	Message string `json:"message,omitempty"`
}

// Handle records the outcome and returns the proceed directive
func (h *LoginOutcomeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req LoginOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	directive, err := h.monitor.OnLoginResult(r.Context(), req.IPAddress, req.Identifier, req.Success, req.UserAgent)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to process login outcome")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginOutcomeResponse{
		Proceed: directive.Proceed,
		Message: directive.Message,
	})
}
