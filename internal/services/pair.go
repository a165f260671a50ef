package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"calendar-share/internal/apperr"
	"calendar-share/internal/models"
	"calendar-share/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Pairing messages
const (
	MsgInviteEmailRequired = "Please enter your partner's email"
	MsgInviteNotYours      = "This invite was sent to a different email"
)

// InviteResult is the outcome of inviting a partner
type InviteResult struct {
	ShareLink string         `json:"share_link"`
	Message   string         `json:"message"`
	Invite    *models.Invite `json:"invite"`
}

// PairService handles pair-related business logic
type PairService struct {
	pairs    PairStore
	invites  InviteStore
	users    UserStore
	notifier Notifier
	baseURL  string
	now      func() time.Time
}

// NewPairService creates a new pair service
func NewPairService(pairs PairStore, invites InviteStore, users UserStore, notifier Notifier, baseURL string) *PairService {
	return &PairService{
		pairs:    pairs,
		invites:  invites,
		users:    users,
		notifier: notifier,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		now:      time.Now,
	}
}

// ShareLink returns the public link to a user's shared calendar
func (s *PairService) ShareLink(userID string) string {
	return s.baseURL + "/shared/" + userID
}

// Invite records a pending invite for partnerEmail and returns the user's
// share link. No pair exists until the invitee accepts.
func (s *PairService) Invite(ctx context.Context, userID, partnerEmail string) (*InviteResult, error) {
	partnerEmail = foldEmail(partnerEmail)
	if partnerEmail == "" {
		return nil, apperr.Validation(MsgInviteEmailRequired)
	}

	partner, err := s.users.GetByEmail(ctx, partnerEmail)
	switch {
	case err == nil:
		if partner.ID == userID {
			return nil, apperr.Validation("cannot create pair with yourself")
		}
	case apperr.IsNotFound(err):
		partner = nil
	default:
		return nil, err
	}

	invite := &models.Invite{
		ID:           uuid.New().String(),
		InviterID:    userID,
		InviteeEmail: partnerEmail,
		CreatedAt:    s.now(),
	}
	if err := s.invites.Create(ctx, invite); err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	if partner != nil {
		if err := s.notifier.NotifyInvite(partner.ID, invite); err != nil {
			log.Debug().Err(err).Str("user_id", partner.ID).Msg("Invite notification not delivered")
		}
	}

	link := s.ShareLink(userID)
	return &InviteResult{
		ShareLink: link,
		Message:   fmt.Sprintf("Share link ready! Send this to %s: %s", partnerEmail, link),
		Invite:    invite,
	}, nil
}

// PendingInvites lists the invites waiting for email
func (s *PairService) PendingInvites(ctx context.Context, email string) ([]models.Invite, error) {
	return s.invites.ListForEmail(ctx, foldEmail(email))
}

// AcceptInvite pairs the invitee with the inviter. Only the user signed in
// with the invited email may accept.
func (s *PairService) AcceptInvite(ctx context.Context, inviteID, userID, email string) (*models.Pair, error) {
	invite, err := s.ownInvite(ctx, inviteID, email)
	if err != nil {
		return nil, err
	}

	pair, err := s.CreatePair(ctx, invite.InviterID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.invites.Delete(ctx, invite.ID); err != nil {
		log.Error().Err(err).Str("invite_id", invite.ID).Msg("Failed to delete accepted invite")
	}
	return pair, nil
}

// DeclineInvite drops an invite addressed to email
func (s *PairService) DeclineInvite(ctx context.Context, inviteID, email string) error {
	invite, err := s.ownInvite(ctx, inviteID, email)
	if err != nil {
		return err
	}
	return s.invites.Delete(ctx, invite.ID)
}

func (s *PairService) ownInvite(ctx context.Context, inviteID, email string) (*models.Invite, error) {
	if inviteID == "" {
		return nil, apperr.Validation("invite_id is required")
	}
	invite, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if invite.InviteeEmail != foldEmail(email) {
		return nil, fmt.Errorf("%s: %w", MsgInviteNotYours, apperr.ErrForbidden)
	}
	return invite, nil
}

func foldEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreatePair creates a new pair between two users
func (s *PairService) CreatePair(ctx context.Context, userAID, userBID string) (*models.Pair, error) {
	// Check if user is trying to pair with themselves
	if userAID == userBID {
		return nil, apperr.Validation("cannot create pair with yourself")
	}

	hasPair, err := s.pairs.UserHasPair(ctx, userAID)
	if err != nil {
		return nil, fmt.Errorf("failed to check if user has pair: %w", err)
	}
	if hasPair {
		return nil, apperr.Validation("user is already in a pair")
	}

	partnerHasPair, err := s.pairs.UserHasPair(ctx, userBID)
	if err != nil {
		return nil, fmt.Errorf("failed to check if partner has pair: %w", err)
	}
	if partnerHasPair {
		return nil, apperr.Validation("partner is already in a pair")
	}

	initiator := userAID
	partnerID := userBID

	// user_a_id is the lexicographically smaller id
	if userAID > userBID {
		userAID, userBID = userBID, userAID
	}

	pair := &models.Pair{
		ID:        uuid.New().String(),
		UserAID:   userAID,
		UserBID:   userBID,
		CreatedAt: s.now(),
	}

	if err := s.pairs.Create(ctx, pair); err != nil {
		if errors.Is(err, repository.ErrAlreadyPaired) {
			return nil, apperr.Validation("user is already in a pair")
		}
		return nil, fmt.Errorf("failed to create pair: %w", err)
	}

	log.Info().Str("pair_id", pair.ID).Str("user_id", initiator).Msg("Pair created")
	for _, id := range []string{initiator, partnerID} {
		if err := s.notifier.NotifyPairCreated(id, pair); err != nil {
			log.Debug().Err(err).Str("user_id", id).Msg("Pair notification not delivered")
		}
	}
	return pair, nil
}

// DeletePair deletes a pair if the user is a member
func (s *PairService) DeletePair(ctx context.Context, pairID, userID string) error {
	pair, err := s.pairs.GetByID(ctx, pairID)
	if err != nil {
		return err
	}

	if !pair.Has(userID) {
		return fmt.Errorf("user is not a member of this pair: %w", apperr.ErrForbidden)
	}

	if err := s.pairs.Delete(ctx, pairID); err != nil {
		return err
	}

	if err := s.notifier.NotifyPairDeleted(pair.PartnerOf(userID)); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Pair deletion not delivered")
	}
	return nil
}

// GetPairByUserID gets the pair for a user
func (s *PairService) GetPairByUserID(ctx context.Context, userID string) (*models.Pair, error) {
	return s.pairs.GetByUserID(ctx, userID)
}
