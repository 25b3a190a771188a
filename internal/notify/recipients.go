package notify

import "maintenance-service/internal/model"

// Audience selects the wording a recipient receives.
type Audience uint8

const (
	AudienceAdmin Audience = iota + 1
	AudienceOwner
	AudienceTechnician
)

type Recipient struct {
	UserID   uint64
	Audience Audience
}

// Recipients is an ordered recipient set; the first audience added for a
// user wins.
type Recipients []Recipient

func (r Recipients) add(userID uint64, audience Audience) Recipients {
	if userID == 0 {
		return r
	}
	for _, existing := range r {
		if existing.UserID == userID {
			return r
		}
	}
	return append(r, Recipient{UserID: userID, Audience: audience})
}

func (r Recipients) IDs() []uint64 {
	ids := make([]uint64, 0, len(r))
	for _, rcpt := range r {
		ids = append(ids, rcpt.UserID)
	}
	return ids
}

// AssignmentRecipients is the assigned technician plus the ticket owner when
// the owner is a client.
func AssignmentRecipients(i model.Intervention, owner *model.User) Recipients {
	var out Recipients
	out = out.add(i.TechnicianID, AudienceTechnician)
	if owner != nil && owner.Role == model.RoleClient {
		out = out.add(owner.ID, AudienceOwner)
	}
	return out
}

// StatusChangeRecipients is every admin plus the ticket owner.
func StatusChangeRecipients(admins []model.User, ownerID *uint64) Recipients {
	out := AdminRecipients(admins)
	if ownerID != nil {
		out = out.add(*ownerID, AudienceOwner)
	}
	return out
}

func AdminRecipients(admins []model.User) Recipients {
	var out Recipients
	for _, admin := range admins {
		out = out.add(admin.ID, AudienceAdmin)
	}
	return out
}
