package model

import "time"

type InterventionStatusLog struct {
	ID             uint64              `gorm:"primaryKey" json:"id"`
	InterventionID uint64              `gorm:"not null;index" json:"intervention_id"`
	OldStatus      *InterventionStatus `gorm:"type:varchar(32)" json:"old_status"`
	NewStatus      InterventionStatus  `gorm:"type:varchar(32);not null" json:"new_status"`
	Note           string              `gorm:"type:text" json:"note"`
	ChangedBy      *uint64             `json:"changed_by"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

func (InterventionStatusLog) TableName() string {
	return "intervention_status_log"
}
