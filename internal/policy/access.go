// Package policy holds the role-based access predicates. Every function is
// pure: it inspects the actor and the entity and performs no I/O.
package policy

import "maintenance-service/internal/model"

// ScopeFor returns the list scope of an actor.
func ScopeFor(p model.Principal) (model.Scope, bool) {
	switch p.Role {
	case model.RoleAdmin:
		return model.Scope{Type: model.ScopeAll}, true
	case model.RoleTechnician:
		return model.Scope{Type: model.ScopeTechnician, UserID: p.UserID}, true
	case model.RoleClient:
		return model.Scope{Type: model.ScopeOwner, UserID: p.UserID}, true
	default:
		return model.Scope{}, false
	}
}

func CanViewTicket(p model.Principal, t model.Ticket) bool {
	switch p.Role {
	case model.RoleAdmin:
		return true
	case model.RoleTechnician:
		return t.IsAssignedTo(p.UserID)
	case model.RoleClient:
		return t.UserID == p.UserID
	default:
		return false
	}
}

func CanUpdateTicket(p model.Principal, t model.Ticket) bool {
	return CanViewTicket(p, t)
}

func CanDeleteTicket(p model.Principal, t model.Ticket) bool {
	switch p.Role {
	case model.RoleAdmin:
		return true
	case model.RoleTechnician, model.RoleClient:
		return t.UserID == p.UserID
	default:
		return false
	}
}

// CanViewIntervention expects i.Ticket to be loaded when the actor is a client.
func CanViewIntervention(p model.Principal, i model.Intervention) bool {
	switch p.Role {
	case model.RoleAdmin:
		return true
	case model.RoleTechnician:
		return i.TechnicianID == p.UserID
	case model.RoleClient:
		owner, ok := i.OwnerID()
		return ok && owner == p.UserID
	default:
		return false
	}
}

func CanUpdateIntervention(p model.Principal, i model.Intervention) bool {
	switch p.Role {
	case model.RoleAdmin:
		return true
	case model.RoleTechnician:
		return i.TechnicianID == p.UserID
	case model.RoleClient:
		return false
	default:
		return false
	}
}

func CanDeleteIntervention(p model.Principal) bool {
	return p.Role == model.RoleAdmin
}

func CanAssignTechnician(p model.Principal) bool {
	return p.Role == model.RoleAdmin
}

// CanOperateInterventions gates status changes and report submission before
// the intervention is loaded.
func CanOperateInterventions(p model.Principal) bool {
	switch p.Role {
	case model.RoleAdmin, model.RoleTechnician:
		return true
	default:
		return false
	}
}

func CanViewPlanning(p model.Principal, pl model.Planning) bool {
	switch p.Role {
	case model.RoleAdmin:
		return true
	case model.RoleTechnician:
		return pl.TechnicianID == p.UserID
	default:
		return false
	}
}

func CanDeleteComment(p model.Principal, c model.Comment) bool {
	return p.Role == model.RoleAdmin || c.UserID == p.UserID
}

func IsAdmin(p model.Principal) bool {
	return p.Role == model.RoleAdmin
}
