package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enum constants. Master manages reference data and users; Aprovador
// can decide requests; Visualizador is read-only.
const (
	RoleMaster   = "Master"
	RoleApprover = "Aprovador"
	RoleViewer   = "Visualizador"
)

// User represents an internal portal user. Branch is either a 2-letter UF
// code or WildcardBranch, scoping which requests the user sees and which
// staff alerts they receive.
type User struct {
	ID                    uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name                  string         `gorm:"type:varchar(255);not null" json:"name"`
	Email                 string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password              string         `gorm:"type:varchar(255);not null" json:"-"` // Omit password from JSON requests/responses
	Branch                string         `gorm:"type:varchar(10);not null" json:"branch"`
	Role                  string         `gorm:"type:varchar(20);not null" json:"role"`
	ReceivesNotifications bool           `gorm:"default:false" json:"receives_notifications"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete — blocking a user keeps the row
}
