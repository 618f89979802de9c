package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/pkg/errorutil"
)

var (
	ownerCap = Capability{ActorID: "seller-1", Authenticated: true, Owner: true}
	adminCap = Capability{ActorID: "admin-1", Authenticated: true, Admin: true}
	otherCap = Capability{ActorID: "buyer-1", Authenticated: true}
	anonCap  = Capability{}
)

func TestDecideAllowedTransitions(t *testing.T) {
	cases := []struct {
		from       domain.ListingStatus
		transition Transition
		capability Capability
		to         domain.ListingStatus
		removes    bool
	}{
		{domain.ListingStatusDraft, TransitionSubmit, ownerCap, domain.ListingStatusPending, false},
		{domain.ListingStatusRejected, TransitionSubmit, ownerCap, domain.ListingStatusPending, false},
		{domain.ListingStatusPending, TransitionApprove, adminCap, domain.ListingStatusApproved, false},
		{domain.ListingStatusPending, TransitionReject, adminCap, domain.ListingStatusRejected, false},
		{domain.ListingStatusApproved, TransitionMarkSold, ownerCap, domain.ListingStatusSold, false},
		{domain.ListingStatusSold, TransitionReactivate, ownerCap, domain.ListingStatusApproved, false},
		{domain.ListingStatusApproved, TransitionArchive, adminCap, domain.ListingStatusArchived, false},
		{domain.ListingStatusSold, TransitionArchive, adminCap, domain.ListingStatusArchived, false},
		{domain.ListingStatusDraft, TransitionDelete, ownerCap, "", true},
		{domain.ListingStatusPending, TransitionDelete, adminCap, "", true},
		{domain.ListingStatusSold, TransitionDelete, ownerCap, "", true},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"/"+string(tc.transition), func(t *testing.T) {
			decision, err := Decide(tc.from, tc.transition, tc.capability, 1)
			require.NoError(t, err)
			assert.Equal(t, tc.from, decision.From)
			assert.Equal(t, tc.to, decision.To)
			assert.Equal(t, tc.removes, decision.RemovesRecord)
		})
	}
}

func TestDecideRejectsPairsOutsideTable(t *testing.T) {
	for _, from := range domain.ListingStatuses {
		for _, transition := range Transitions {
			if _, ok := Lookup(from, transition); ok {
				continue
			}
			capability := ownerCap
			if kind, _ := RequiredActor(transition); kind == ActorAdmin {
				capability = adminCap
			}
			_, err := Decide(from, transition, capability, 3)
			require.Error(t, err, "%s/%s", from, transition)
			assert.True(t, errorutil.HasCode(err, errorutil.CodeConflict), "%s/%s: %v", from, transition, err)
		}
	}
}

func TestDecideDirectDraftToApprovedIsConflict(t *testing.T) {
	_, err := Decide(domain.ListingStatusDraft, TransitionApprove, adminCap, 1)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeConflict))

	_, err = Decide(domain.ListingStatusRejected, TransitionMarkSold, ownerCap, 1)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeConflict))
}

func TestDecideActorCheckedBeforeStatus(t *testing.T) {
	for _, from := range domain.ListingStatuses {
		for _, transition := range Transitions {
			_, err := Decide(from, transition, otherCap, 1)
			assert.True(t, errorutil.HasCode(err, errorutil.CodeForbidden), "%s/%s", from, transition)

			_, err = Decide(from, transition, anonCap, 1)
			assert.True(t, errorutil.HasCode(err, errorutil.CodeUnauthorized), "%s/%s", from, transition)
		}
	}
}

func TestDecideWrongRole(t *testing.T) {
	_, err := Decide(domain.ListingStatusPending, TransitionApprove, ownerCap, 1)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeForbidden))

	_, err = Decide(domain.ListingStatusDraft, TransitionSubmit, adminCap, 1)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeForbidden))
}

func TestDecideSubmitNeedsPhotos(t *testing.T) {
	_, err := Decide(domain.ListingStatusDraft, TransitionSubmit, ownerCap, 0)
	require.Error(t, err)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeValidation))
	assert.Contains(t, errorutil.ToDomainError(err).Details, "photo_count")

	_, err = Decide(domain.ListingStatusRejected, TransitionSubmit, ownerCap, 0)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeValidation))
}

func TestDecideUnknownTransition(t *testing.T) {
	_, err := Decide(domain.ListingStatusDraft, Transition("teleport"), ownerCap, 1)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeValidation))
}

func TestArchivedIsTerminal(t *testing.T) {
	for _, transition := range Transitions {
		_, ok := Lookup(domain.ListingStatusArchived, transition)
		assert.False(t, ok, transition)
	}
}

func TestDecideAdminCannotModerateOwnListing(t *testing.T) {
	ownerAdmin := Capability{ActorID: "admin-seller", Authenticated: true, Owner: true, Admin: true}

	for _, transition := range []Transition{TransitionApprove, TransitionReject} {
		_, err := Decide(domain.ListingStatusPending, transition, ownerAdmin, 1)
		assert.True(t, errorutil.HasCode(err, errorutil.CodeForbidden), transition)
	}
	_, err := Decide(domain.ListingStatusApproved, TransitionArchive, ownerAdmin, 1)
	assert.True(t, errorutil.HasCode(err, errorutil.CodeForbidden))

	decision, err := Decide(domain.ListingStatusPending, TransitionDelete, ownerAdmin, 1)
	require.NoError(t, err)
	assert.True(t, decision.RemovesRecord)
}
