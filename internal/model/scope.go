package model

type ScopeType string

const (
	ScopeAll        ScopeType = "ALL"
	ScopeTechnician ScopeType = "TECHNICIAN"
	ScopeOwner      ScopeType = "OWNER"
)

// Scope narrows list queries to the rows an actor may see.
type Scope struct {
	Type   ScopeType
	UserID uint64
}

func (s Scope) AllowsTicket(t Ticket) bool {
	switch s.Type {
	case ScopeAll:
		return true
	case ScopeTechnician:
		return t.IsAssignedTo(s.UserID)
	case ScopeOwner:
		return t.UserID == s.UserID
	default:
		return false
	}
}
