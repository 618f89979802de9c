// Package moderation holds the listing lifecycle rules: which transitions exist,
// who may trigger them, and what capability an actor has over a listing.
// Nothing here performs I/O.
package moderation

import (
	"fmt"

	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/pkg/errorutil"
)

// Transition names a requested lifecycle change.
type Transition string

const (
	TransitionSubmit     Transition = "submit"
	TransitionApprove    Transition = "approve"
	TransitionReject     Transition = "reject"
	TransitionMarkSold   Transition = "mark_sold"
	TransitionReactivate Transition = "reactivate"
	TransitionArchive    Transition = "archive"
	TransitionDelete     Transition = "delete"
)

// Transitions lists every transition the machine knows.
var Transitions = []Transition{
	TransitionSubmit,
	TransitionApprove,
	TransitionReject,
	TransitionMarkSold,
	TransitionReactivate,
	TransitionArchive,
	TransitionDelete,
}

// ActorKind is the capability a transition demands.
type ActorKind int

const (
	ActorOwner ActorKind = iota + 1
	ActorAdmin
	ActorOwnerOrAdmin
)

func (k ActorKind) String() string {
	switch k {
	case ActorOwner:
		return "owner"
	case ActorAdmin:
		return "admin"
	case ActorOwnerOrAdmin:
		return "owner or admin"
	}
	return "unknown"
}

// Rule is one row of the transition table.
type Rule struct {
	From          domain.ListingStatus
	Transition    Transition
	To            domain.ListingStatus
	NeedsPhotos   bool
	RemovesRecord bool
}

// Decision is the outcome of a legal transition.
type Decision struct {
	From          domain.ListingStatus
	To            domain.ListingStatus
	Transition    Transition
	RemovesRecord bool
}

var requiredActor = map[Transition]ActorKind{
	TransitionSubmit:     ActorOwner,
	TransitionApprove:    ActorAdmin,
	TransitionReject:     ActorAdmin,
	TransitionMarkSold:   ActorOwner,
	TransitionReactivate: ActorOwner,
	TransitionArchive:    ActorAdmin,
	TransitionDelete:     ActorOwnerOrAdmin,
}

var rules = buildRules()

func buildRules() map[domain.ListingStatus]map[Transition]Rule {
	table := []Rule{
		{From: domain.ListingStatusDraft, Transition: TransitionSubmit, To: domain.ListingStatusPending, NeedsPhotos: true},
		{From: domain.ListingStatusRejected, Transition: TransitionSubmit, To: domain.ListingStatusPending, NeedsPhotos: true},
		{From: domain.ListingStatusPending, Transition: TransitionApprove, To: domain.ListingStatusApproved},
		{From: domain.ListingStatusPending, Transition: TransitionReject, To: domain.ListingStatusRejected},
		{From: domain.ListingStatusApproved, Transition: TransitionMarkSold, To: domain.ListingStatusSold},
		{From: domain.ListingStatusSold, Transition: TransitionReactivate, To: domain.ListingStatusApproved},
		{From: domain.ListingStatusApproved, Transition: TransitionArchive, To: domain.ListingStatusArchived},
		{From: domain.ListingStatusSold, Transition: TransitionArchive, To: domain.ListingStatusArchived},
	}
	// ARCHIVED is terminal; every other status may be deleted.
	for _, status := range domain.ListingStatuses {
		if status == domain.ListingStatusArchived {
			continue
		}
		table = append(table, Rule{From: status, Transition: TransitionDelete, RemovesRecord: true})
	}

	out := make(map[domain.ListingStatus]map[Transition]Rule, len(domain.ListingStatuses))
	for _, rule := range table {
		if out[rule.From] == nil {
			out[rule.From] = make(map[Transition]Rule)
		}
		out[rule.From][rule.Transition] = rule
	}
	return out
}

// RequiredActor returns the capability transition t demands.
func RequiredActor(t Transition) (ActorKind, bool) {
	kind, ok := requiredActor[t]
	return kind, ok
}

// Lookup returns the table row for (from, t), if any.
func Lookup(from domain.ListingStatus, t Transition) (Rule, bool) {
	rule, ok := rules[from][t]
	return rule, ok
}

// Decide evaluates a requested transition. Checks run in a fixed order:
// actor capability, table membership, then structural preconditions.
// photoCount is only consulted for rules that need photos.
func Decide(from domain.ListingStatus, t Transition, capability Capability, photoCount int) (Decision, error) {
	if err := capability.AuthorizeTransition(t); err != nil {
		return Decision{}, err
	}

	rule, ok := Lookup(from, t)
	if !ok {
		return Decision{}, errorutil.NewConflict(
			fmt.Sprintf("cannot %s a listing in status %s", t, from),
			map[string]any{"status": string(from), "transition": string(t)},
		)
	}
	if rule.NeedsPhotos && photoCount < 1 {
		return Decision{}, errorutil.NewFieldError("photo_count", "at least one photo is required before submission")
	}

	return Decision{
		From:          rule.From,
		To:            rule.To,
		Transition:    t,
		RemovesRecord: rule.RemovesRecord,
	}, nil
}
