package model

import "strings"

// Reason is a reference entry for why an extra cost occurred. It is keyed by
// the normalized (uppercase, trimmed) name while keeping the original
// spelling for display, and carries the default routing department and cost
// center used to prefill a request when the reason is selected.
type Reason struct {
	Key        string `gorm:"type:varchar(255);primaryKey" json:"key"`
	Name       string `gorm:"type:varchar(255);not null" json:"name"`
	Department string `gorm:"type:varchar(50);not null;default:'Logística'" json:"department"`
	CostCenter string `gorm:"type:varchar(20)" json:"cost_center"`
}

// NormalizeReasonKey derives the natural key from a reason name.
func NormalizeReasonKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
