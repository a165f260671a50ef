package handlers

import (
	"context"
	"net/http"

	"calendar-share/internal/middleware"
	"calendar-share/internal/models"
	"calendar-share/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// PairManager is the pairing API the handlers need
type PairManager interface {
	Invite(ctx context.Context, userID, partnerEmail string) (*services.InviteResult, error)
	PendingInvites(ctx context.Context, email string) ([]models.Invite, error)
	AcceptInvite(ctx context.Context, inviteID, userID, email string) (*models.Pair, error)
	DeclineInvite(ctx context.Context, inviteID, email string) error
	DeletePair(ctx context.Context, pairID, userID string) error
	GetPairByUserID(ctx context.Context, userID string) (*models.Pair, error)
}

// PairHandler handles pair-related HTTP requests
type PairHandler struct {
	pairs PairManager
}

// NewPairHandler creates a new pair handler
func NewPairHandler(pairs PairManager) *PairHandler {
	return &PairHandler{pairs: pairs}
}

// InviteRequest represents the request body for inviting a partner
type InviteRequest struct {
	PartnerEmail string `json:"partner_email"`
}

// Invite handles POST /api/v1/pairs/invite
func (h *PairHandler) Invite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req InviteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.pairs.Invite(ctx, userID, req.PartnerEmail)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to invite partner")
		respondServiceError(w, err, http.StatusBadRequest, "Error sharing with partner")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("invite_id", res.Invite.ID).
		Msg("Partner invited")

	respondJSON(w, http.StatusOK, res)
}

// InviteDecision is the request body for accepting or declining an invite
type InviteDecision struct {
	InviteID string `json:"invite_id"`
}

// ListInvites handles GET /api/v1/pairs/invites
func (h *PairHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := middleware.GetSession(ctx)

	invites, err := h.pairs.PendingInvites(ctx, session.Email)
	if err != nil {
		log.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to list invites")
		respondServiceError(w, err, http.StatusBadRequest, "Failed to list invites")
		return
	}
	if invites == nil {
		invites = []models.Invite{}
	}
	respondJSON(w, http.StatusOK, invites)
}

// AcceptInvite handles POST /api/v1/pairs/accept
func (h *PairHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := middleware.GetSession(ctx)

	var req InviteDecision
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	pair, err := h.pairs.AcceptInvite(ctx, req.InviteID, session.UserID, session.Email)
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", session.UserID).
			Str("invite_id", req.InviteID).
			Msg("Failed to accept invite")
		respondServiceError(w, err, http.StatusBadRequest, "Failed to accept invite")
		return
	}

	log.Info().
		Str("user_id", session.UserID).
		Str("pair_id", pair.ID).
		Msg("Invite accepted")

	respondJSON(w, http.StatusOK, pair)
}

// DeclineInvite handles POST /api/v1/pairs/decline
func (h *PairHandler) DeclineInvite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := middleware.GetSession(ctx)

	var req InviteDecision
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.pairs.DeclineInvite(ctx, req.InviteID, session.Email); err != nil {
		respondServiceError(w, err, http.StatusBadRequest, "Failed to decline invite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeletePair handles DELETE /api/v1/pairs/{pair_id}
func (h *PairHandler) DeletePair(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	pairID := chi.URLParam(r, "pair_id")

	if pairID == "" {
		respondError(w, "pair_id is required", http.StatusBadRequest)
		return
	}

	if err := h.pairs.DeletePair(ctx, pairID, userID); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID).
			Str("pair_id", pairID).
			Msg("Failed to delete pair")
		respondServiceError(w, err, http.StatusBadRequest, "Failed to delete pair")
		return
	}

	log.Info().
		Str("user_id", userID).
		Str("pair_id", pairID).
		Msg("Pair deleted")

	w.WriteHeader(http.StatusNoContent)
}

// GetMyPair handles GET /api/v1/pairs/me
func (h *PairHandler) GetMyPair(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	pair, err := h.pairs.GetPairByUserID(ctx, userID)
	if err != nil {
		respondServiceError(w, err, http.StatusBadRequest, "Failed to get pair")
		return
	}
	respondJSON(w, http.StatusOK, pair)
}
