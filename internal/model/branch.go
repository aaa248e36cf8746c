package model

// Branch is a regional operating unit, keyed by its 2-letter UF code.
type Branch struct {
	UF   string `gorm:"type:varchar(2);primaryKey" json:"uf"`
	Name string `gorm:"type:varchar(120);not null" json:"name"`
	CNPJ string `gorm:"type:varchar(20)" json:"cnpj"`
}

// WildcardBranch is the scope value meaning "every branch" — a user with
// this scope sees and receives notifications for all branches.
const WildcardBranch = "TODAS"
