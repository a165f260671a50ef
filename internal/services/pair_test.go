package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"calendar-share/internal/apperr"
	"calendar-share/internal/models"
)

type pairFixture struct {
	svc      *PairService
	pairs    *fakePairs
	invites  *fakeInvites
	users    *fakeUsers
	notifier *fakeNotifier
}

func newTestPairs() *pairFixture {
	f := &pairFixture{
		pairs:    newFakePairs(),
		invites:  newFakeInvites(),
		users:    newFakeUsers(),
		notifier: &fakeNotifier{},
	}
	f.svc = NewPairService(f.pairs, f.invites, f.users, f.notifier, "https://cal.example.com/")
	return f
}

func addUser(users *fakeUsers, id, email string) {
	users.Create(context.Background(), &models.User{ID: id, Email: email, CreatedAt: time.Now()})
}

func TestInviteRequiresEmail(t *testing.T) {
	f := newTestPairs()
	_, err := f.svc.Invite(context.Background(), "u1", "   ")
	if !apperr.IsValidation(err) || err.Error() != MsgInviteEmailRequired {
		t.Errorf("expected %q, got %v", MsgInviteEmailRequired, err)
	}
}

func TestInviteSelf(t *testing.T) {
	f := newTestPairs()
	addUser(f.users, "amy", "amy@example.com")

	if _, err := f.svc.Invite(context.Background(), "amy", "amy@example.com"); !apperr.IsValidation(err) {
		t.Errorf("self invite should fail validation, got %v", err)
	}
	if len(f.invites.rows) != 0 {
		t.Error("self invite must not be stored")
	}
}

func TestInviteUnknownEmailReturnsLink(t *testing.T) {
	f := newTestPairs()

	res, err := f.svc.Invite(context.Background(), "u1", "sam@example.com")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if res.ShareLink != "https://cal.example.com/shared/u1" {
		t.Errorf("unexpected share link %s", res.ShareLink)
	}
	if !strings.Contains(res.Message, "sam@example.com") || !strings.Contains(res.Message, res.ShareLink) {
		t.Errorf("unexpected message %q", res.Message)
	}
	if res.Invite == nil || len(f.invites.rows) != 1 {
		t.Error("invite should be stored for a future account")
	}
	if len(f.pairs.rows) != 0 || len(f.notifier.sent) != 0 {
		t.Error("unknown email must not create a pair or notify anyone")
	}
}

func TestInviteExistingUserWaitsForAcceptance(t *testing.T) {
	f := newTestPairs()
	ctx := context.Background()
	addUser(f.users, "zed", "sam@example.com")

	res, err := f.svc.Invite(ctx, "amy", "Sam@Example.com")
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if len(f.pairs.rows) != 0 {
		t.Fatal("an invite alone must not pair the users")
	}
	if res.Invite.InviteeEmail != "sam@example.com" || res.Invite.InviterID != "amy" {
		t.Errorf("unexpected invite %+v", res.Invite)
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0] != (sentNote{MsgTypePairInvite, "zed"}) {
		t.Errorf("invitee should be told about the invite, got %+v", f.notifier.sent)
	}

	again, err := f.svc.Invite(ctx, "amy", "sam@example.com")
	if err != nil {
		t.Fatalf("second Invite: %v", err)
	}
	if again.Invite.ID != res.Invite.ID || len(f.invites.rows) != 1 {
		t.Error("repeated invites to the same email should reuse the pending invite")
	}

	pending, err := f.svc.PendingInvites(ctx, "SAM@example.com ")
	if err != nil || len(pending) != 1 {
		t.Fatalf("PendingInvites = %v, %v", pending, err)
	}

	pair, err := f.svc.AcceptInvite(ctx, res.Invite.ID, "zed", "sam@example.com")
	if err != nil {
		t.Fatalf("AcceptInvite: %v", err)
	}
	if pair.UserAID != "amy" || pair.UserBID != "zed" {
		t.Errorf("pair members must be ordered, got %s / %s", pair.UserAID, pair.UserBID)
	}
	if len(f.invites.rows) != 0 {
		t.Error("accepted invite should be removed")
	}
	if len(f.notifier.sent) != 3 {
		t.Errorf("both members should be notified of the pair, got %+v", f.notifier.sent)
	}
}

func TestAcceptInviteChecks(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		inviteID string
		userID   string
		email    string
		check    func(error) bool
	}{
		{"missing id", "", "zed", "sam@example.com", apperr.IsValidation},
		{"unknown invite", "nope", "zed", "sam@example.com", apperr.IsNotFound},
		{"someone else", "i1", "eve", "eve@example.com", apperr.IsForbidden},
		{"inviter accepts own invite", "i1", "amy", "amy@example.com", apperr.IsForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestPairs()
			f.invites.rows["i1"] = &models.Invite{ID: "i1", InviterID: "amy", InviteeEmail: "sam@example.com"}

			_, err := f.svc.AcceptInvite(ctx, tt.inviteID, tt.userID, tt.email)
			if !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
			if len(f.pairs.rows) != 0 || len(f.invites.rows) != 1 {
				t.Error("a rejected accept must leave state unchanged")
			}
		})
	}
}

func TestAcceptInviteWhilePaired(t *testing.T) {
	f := newTestPairs()
	f.invites.rows["i1"] = &models.Invite{ID: "i1", InviterID: "amy", InviteeEmail: "sam@example.com"}
	f.pairs.rows["p1"] = &models.Pair{ID: "p1", UserAID: "amy", UserBID: "bob"}

	_, err := f.svc.AcceptInvite(context.Background(), "i1", "zed", "sam@example.com")
	if !apperr.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(f.invites.rows) != 1 {
		t.Error("invite should stay pending when pairing fails")
	}
}

func TestDeclineInvite(t *testing.T) {
	f := newTestPairs()
	ctx := context.Background()
	f.invites.rows["i1"] = &models.Invite{ID: "i1", InviterID: "amy", InviteeEmail: "sam@example.com"}

	if err := f.svc.DeclineInvite(ctx, "i1", "eve@example.com"); !apperr.IsForbidden(err) {
		t.Errorf("only the invitee may decline, got %v", err)
	}
	if err := f.svc.DeclineInvite(ctx, "i1", "sam@example.com"); err != nil {
		t.Fatalf("DeclineInvite: %v", err)
	}
	if len(f.invites.rows) != 0 || len(f.pairs.rows) != 0 {
		t.Error("declined invite should be removed without pairing")
	}
}

func TestCreatePairChecks(t *testing.T) {
	f := newTestPairs()
	ctx := context.Background()

	if _, err := f.svc.CreatePair(ctx, "u1", "u1"); !apperr.IsValidation(err) {
		t.Errorf("self pairing should fail, got %v", err)
	}

	f.pairs.rows["p1"] = &models.Pair{ID: "p1", UserAID: "u2", UserBID: "u3"}
	if _, err := f.svc.CreatePair(ctx, "u1", "u2"); !apperr.IsValidation(err) {
		t.Errorf("pairing with a paired partner should fail, got %v", err)
	}
	if _, err := f.svc.CreatePair(ctx, "u3", "u1"); !apperr.IsValidation(err) {
		t.Errorf("pairing while paired should fail, got %v", err)
	}
}

func TestDeletePair(t *testing.T) {
	f := newTestPairs()
	ctx := context.Background()
	f.pairs.rows["p1"] = &models.Pair{ID: "p1", UserAID: "u1", UserBID: "u2"}

	if err := f.svc.DeletePair(ctx, "p1", "u9"); !apperr.IsForbidden(err) {
		t.Errorf("non-member delete should be forbidden, got %v", err)
	}
	if err := f.svc.DeletePair(ctx, "missing", "u1"); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := f.svc.DeletePair(ctx, "p1", "u1"); err != nil {
		t.Fatalf("DeletePair: %v", err)
	}
	if len(f.pairs.rows) != 0 {
		t.Error("pair should be gone")
	}
	if len(f.notifier.sent) != 1 || f.notifier.sent[0] != (sentNote{MsgTypePairDeleted, "u2"}) {
		t.Errorf("partner should be notified, got %+v", f.notifier.sent)
	}
}
