package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/HollandReese/bulwark/internal/auth"
	"github.com/HollandReese/bulwark/internal/models"
	"github.com/HollandReese/bulwark/internal/services"
	pkghttp "github.com/HollandReese/bulwark/pkg/http"
)

// EventReviewer is the event status-transition surface exposed to admins
type EventReviewer interface {
	ReviewEvent(ctx context.Context, id string, status models.EventStatus) error
}

// AdminHandler exposes the block registry's administrative surface
type AdminHandler struct {
	blocks   *services.BlockService
	reviewer EventReviewer
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(blocks *services.BlockService, reviewer EventReviewer) *AdminHandler {
	return &AdminHandler{
		blocks:   blocks,
		reviewer: reviewer,
	}
}

// BlockRequest represents the manual block request body
type BlockRequest struct {
	IPAddress       string  `json:"ip_address" validate:"required,ip"`
	Reason          string  `json:"reason" validate:"required"`
	DurationMinutes *int    `json:"duration_minutes" validate:"omitempty,gte=1"`
	Notes           *string `json:"notes" validate:"omitempty,max=1000"`
}

// BlockResponse represents a block record in HTTP responses
type BlockResponse struct {
	IPAddress      string  `json:"ip_address"`
	Reason         string  `json:"reason"`
	BlockType      string  `json:"block_type"`
	BlockedBy      *string `json:"blocked_by,omitempty"`
	ExpiresAt      *string `json:"expires_at,omitempty"`
	Active         bool    `json:"active"`
	ViolationCount int     `json:"violation_count"`
	Notes          *string `json:"notes,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

// ListBlocksResponse represents the active block listing
type ListBlocksResponse struct {
	Blocks []*BlockResponse `json:"blocks"`
	Total  int64            `json:"total"`
}

// UpdateEventStatusRequest represents an event review transition
type UpdateEventStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func blockModelToResponse(b *models.BlockedIP) *BlockResponse {
	resp := &BlockResponse{
		IPAddress:      b.IPAddress,
		Reason:         string(b.Reason),
		BlockType:      string(b.BlockType),
		BlockedBy:      b.BlockedBy,
		Active:         b.Active,
		ViolationCount: b.ViolationCount,
		Notes:          b.Notes,
		CreatedAt:      b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      b.UpdatedAt.Format(time.RFC3339),
	}
	if b.ExpiresAt != nil {
		s := b.ExpiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &s
	}
	return resp
}

// ListBlocks returns the currently active block records
func (h *AdminHandler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	blocks, err := h.blocks.ListActive(r.Context(), limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to list blocks")
		return
	}

	total, err := h.blocks.CountActive(r.Context())
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to count blocks")
		return
	}

	resp := ListBlocksResponse{Blocks: make([]*BlockResponse, 0, len(blocks)), Total: total}
	for _, b := range blocks {
		resp.Blocks = append(resp.Blocks, blockModelToResponse(b))
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// CreateBlock applies a manual block
func (h *AdminHandler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if !models.ValidBlockReason(req.Reason) {
		pkghttp.WriteBadRequest(w, "unknown block reason")
		return
	}

	actor := adminSubject(r)
	opts := services.BlockOptions{
		BlockType: models.BlockTypeManual,
		Actor:     &actor,
		Notes:     req.Notes,
	}
	if req.DurationMinutes != nil {
		d := time.Duration(*req.DurationMinutes) * time.Minute
		opts.Duration = &d
	}

	block, err := h.blocks.Block(r.Context(), req.IPAddress, models.BlockReason(req.Reason), opts)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to block address")
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, blockModelToResponse(block))
}

// DeleteBlock deactivates a block record
func (h *AdminHandler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if address == "" {
		pkghttp.WriteBadRequest(w, "address is required")
		return
	}

	block, err := h.blocks.Unblock(r.Context(), address, adminSubject(r))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "no active block for address")
			return
		}
		pkghttp.WriteInternalError(w, "failed to unblock address")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, blockModelToResponse(block))
}

// UpdateEventStatus transitions an intrusion event's review status
func (h *AdminHandler) UpdateEventStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		pkghttp.WriteBadRequest(w, "event id is required")
		return
	}

	var req UpdateEventStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if !models.ValidEventStatus(req.Status) {
		pkghttp.WriteBadRequest(w, "unknown event status")
		return
	}

	if err := h.reviewer.ReviewEvent(r.Context(), id, models.EventStatus(req.Status)); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "event not found")
			return
		}
		pkghttp.WriteInternalError(w, "failed to update event")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// adminSubject extracts the acting administrator from the request context
func adminSubject(r *http.Request) string {
	if claims, ok := r.Context().Value(auth.AdminContextKey).(*models.TokenClaims); ok {
		return claims.Subject
	}
	return "admin"
}
