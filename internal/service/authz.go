package service

import (
	"context"

	"tasbiaat/api/internal/domain"
	"tasbiaat/api/internal/models"
)

// maxAncestorDepth bounds the upward walk through the supervision chain.
// Saalik -> Murabi -> Masool -> Sheikh is the longest legal chain.
const maxAncestorDepth = 3

// Authorizer is the single gate every cross-user read or write goes through.
// Access follows the supervision chain: a supervisor sees exactly the subtree
// under them, Admin sees everything, and nobody sees sideways.
type Authorizer struct {
	users UserStore
}

func NewAuthorizer(users UserStore) *Authorizer {
	return &Authorizer{users: users}
}

func ancestorIDs(u models.User) []string {
	var ids []string
	if u.MurabiID != nil {
		ids = append(ids, *u.MurabiID)
	}
	if u.MasoolID != nil {
		ids = append(ids, *u.MasoolID)
	}
	if u.SheikhID != nil {
		ids = append(ids, *u.SheikhID)
	}
	return ids
}

// IsAncestor reports whether viewerID appears anywhere in target's upward
// chain. The denormalized parent references usually answer directly; when a
// link in the middle is missing the walk climbs through loaded parents, at
// most maxAncestorDepth hops.
func (a *Authorizer) IsAncestor(ctx context.Context, viewerID string, target models.User) (bool, error) {
	current := target
	for depth := 0; depth < maxAncestorDepth; depth++ {
		parents := ancestorIDs(current)
		if len(parents) == 0 {
			return false, nil
		}
		for _, id := range parents {
			if id == viewerID {
				return true, nil
			}
		}

		parent, err := a.users.GetByID(ctx, parents[0])
		if err != nil {
			return false, nil
		}
		current = parent
	}
	return false, nil
}

// CanViewUser allows self, Admin, and anyone in the target's upward chain.
func (a *Authorizer) CanViewUser(ctx context.Context, viewer models.User, target models.User) (bool, error) {
	if viewer.ID == target.ID || viewer.Role == domain.RoleAdmin {
		return true, nil
	}
	if !viewer.Role.Supervisory() {
		return false, nil
	}
	return a.IsAncestor(ctx, viewer.ID, target)
}

// CanViewEntry follows CanViewUser on the entry's owner.
func (a *Authorizer) CanViewEntry(ctx context.Context, viewer models.User, owner models.User) (bool, error) {
	return a.CanViewUser(ctx, viewer, owner)
}

// CanModifyEntry allows the owner and Admin. Supervisors review through
// comments and status, never by editing the categories themselves.
func (a *Authorizer) CanModifyEntry(viewer models.User, owner models.User) bool {
	return viewer.ID == owner.ID || viewer.Role == domain.RoleAdmin
}

// CanReviewEntry allows supervisors in the owner's chain and Admin to comment
// and change review status.
func (a *Authorizer) CanReviewEntry(ctx context.Context, viewer models.User, owner models.User) (bool, error) {
	if viewer.Role == domain.RoleAdmin {
		return true, nil
	}
	if !viewer.Role.Supervisory() {
		return false, nil
	}
	return a.IsAncestor(ctx, viewer.ID, owner)
}

// CanDeleteEntry is stricter than the other entry rules: only Masool, Sheikh
// and Admin may hard-delete, never the owner or the Murabi. Masool and Sheikh
// must also be in the owner's chain.
func (a *Authorizer) CanDeleteEntry(ctx context.Context, actor models.User, owner models.User) (bool, error) {
	switch actor.Role {
	case domain.RoleAdmin:
		return true, nil
	case domain.RoleMasool, domain.RoleSheikh:
		return a.IsAncestor(ctx, actor.ID, owner)
	default:
		return false, nil
	}
}

// CanManageUser gates management actions (deactivate, force logout, cycle
// reset) on Admin or an ancestor who also outranks the target.
func (a *Authorizer) CanManageUser(ctx context.Context, actor models.User, target models.User) (bool, error) {
	if actor.Role == domain.RoleAdmin {
		return true, nil
	}
	if !actor.Role.Outranks(target.Role) {
		return false, nil
	}
	return a.IsAncestor(ctx, actor.ID, target)
}
