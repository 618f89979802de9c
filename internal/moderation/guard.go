package moderation

import (
	"fmt"

	"github.com/spec-kit/watch-market/internal/domain"
	"github.com/spec-kit/watch-market/pkg/errorutil"
)

// Capability is what an actor may do to one specific listing. It is resolved
// once per request and passed down; callers must not re-derive it.
type Capability struct {
	ActorID       string
	Authenticated bool
	Owner         bool
	Admin         bool
}

// Resolve computes the capability of actor over listing. A nil actor is anonymous;
// a nil listing resolves role-level capability only.
func Resolve(actor *domain.Actor, listing *domain.Listing) Capability {
	if actor == nil || actor.ID == "" {
		return Capability{}
	}
	capability := Capability{
		ActorID:       actor.ID,
		Authenticated: true,
		Admin:         actor.Role == domain.RoleAdmin,
	}
	if listing != nil && listing.SellerID == actor.ID {
		capability.Owner = true
	}
	return capability
}

// CanRead reports whether a listing in status is visible under c.
func (c Capability) CanRead(status domain.ListingStatus) bool {
	if c.Owner || c.Admin {
		return true
	}
	return status.PubliclyVisible()
}

// AuthorizeRead hides listings the actor may not see behind NotFound.
func (c Capability) AuthorizeRead(listingID string, status domain.ListingStatus) error {
	if c.CanRead(status) {
		return nil
	}
	return errorutil.NewNotFound("listing", map[string]any{"listing_id": listingID})
}

// AuthorizeTransition checks the actor side of t before any status logic runs.
func (c Capability) AuthorizeTransition(t Transition) error {
	kind, ok := requiredActor[t]
	if !ok {
		return errorutil.NewValidationError("unknown transition", map[string]any{"transition": string(t)})
	}
	return c.require(kind, t)
}

// AuthorizeEdit checks that the actor may change descriptive fields.
func (c Capability) AuthorizeEdit() error {
	if !c.Authenticated {
		return errorutil.NewUnauthorized("authentication required")
	}
	if !c.Owner {
		return errorutil.NewForbidden("only the seller may edit this listing")
	}
	return nil
}

// AuthorizeHistory allows the owner and admins to read the audit trail.
func (c Capability) AuthorizeHistory() error {
	if !c.Authenticated {
		return errorutil.NewUnauthorized("authentication required")
	}
	if !c.Owner && !c.Admin {
		return errorutil.NewForbidden("history is visible to the seller and administrators only")
	}
	return nil
}

// AuthorizeReport allows any authenticated non-owner to report a listing it can see.
func (c Capability) AuthorizeReport(listingID string, status domain.ListingStatus) error {
	if !c.Authenticated {
		return errorutil.NewUnauthorized("authentication required")
	}
	if c.Owner {
		return errorutil.NewForbidden("sellers cannot report their own listing")
	}
	return c.AuthorizeRead(listingID, status)
}

func (c Capability) require(kind ActorKind, t Transition) error {
	if !c.Authenticated {
		return errorutil.NewUnauthorized("authentication required")
	}
	allowed := false
	switch kind {
	case ActorOwner:
		allowed = c.Owner
	case ActorAdmin:
		if c.Admin && c.Owner {
			return errorutil.NewForbidden("administrators cannot moderate their own listing")
		}
		allowed = c.Admin
	case ActorOwnerOrAdmin:
		allowed = c.Owner || c.Admin
	}
	if !allowed {
		return errorutil.NewForbidden(fmt.Sprintf("%s requires %s", t, kind))
	}
	return nil
}

// RequireAdmin guards operations that are not tied to a listing.
func RequireAdmin(actor *domain.Actor) error {
	if actor == nil || actor.ID == "" {
		return errorutil.NewUnauthorized("authentication required")
	}
	if actor.Role != domain.RoleAdmin {
		return errorutil.NewForbidden("administrator role required")
	}
	return nil
}

// RequireRole guards role-gated operations such as creating a listing.
func RequireRole(actor *domain.Actor, roles ...domain.Role) error {
	if actor == nil || actor.ID == "" {
		return errorutil.NewUnauthorized("authentication required")
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return errorutil.NewForbidden("insufficient role")
}
