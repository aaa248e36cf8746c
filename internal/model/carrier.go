package model

import (
	"time"

	"github.com/google/uuid"
)

// Carrier is a freight company known to the portal; names are stored
// uppercased so the external form's autocomplete stays consistent.
type Carrier struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;index" json:"name"`
	CNPJ      string    `gorm:"type:varchar(20)" json:"cnpj"`
	CreatedAt time.Time `json:"created_at"`
}
