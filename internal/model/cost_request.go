package model

import (
	"time"

	"github.com/google/uuid"
)

// Request status enum constants. Pendente is the initial state; Aprovado and
// Reprovado are terminal for notification purposes but remain editable.
const (
	StatusPending  = "Pendente"
	StatusApproved = "Aprovado"
	StatusRejected = "Reprovado"
)

// Origin enum constants — how the record entered the system
const (
	OriginPortal = "Portal Externo"
	OriginManual = "Inserção Manual"
	OriginImport = "Excel"
)

// Department options used for routing a cost to the responsible sector
const (
	DeptLogistics  = "Logística"
	DeptCommercial = "Comercial"
	DeptDispatch   = "Expedição"
	DeptFinance    = "Financeiro"
	DeptCarrier    = "Transportadora"
)

// CostRequest represents a single extra-freight-cost incident submitted for
// approval. Monetary fields are stored as floating point; display rounding
// to 2 decimals happens at the formatting boundary.
type CostRequest struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	BranchUF        string `gorm:"type:varchar(2);not null;index" json:"branch_uf"`
	BranchCNPJ      string `gorm:"type:varchar(20)" json:"branch_cnpj"`
	CarrierName     string `gorm:"type:varchar(255);not null" json:"carrier_name"`
	InvoiceNumber   string `gorm:"type:varchar(50);index" json:"invoice_number"`
	OrderNumber     string `gorm:"type:varchar(50)" json:"order_number"`
	Reason          string `gorm:"type:varchar(255)" json:"reason"`
	Department      string `gorm:"type:varchar(50)" json:"department"`
	CostCenter      string `gorm:"type:varchar(20)" json:"cost_center"`
	DestinationCity string `gorm:"type:varchar(120)" json:"destination_city"`
	DestinationUF   string `gorm:"type:varchar(2)" json:"destination_uf"`

	InvoiceValue   float64 `gorm:"not null;default:0" json:"invoice_value"`
	FreightValue   float64 `gorm:"not null;default:0" json:"freight_value"`
	RequestedValue float64 `gorm:"not null;default:0" json:"requested_value"` // amount first submitted
	ApprovedValue  float64 `gorm:"not null;default:0" json:"approved_value"`  // amount after negotiation

	Status            string     `gorm:"type:varchar(20);not null;default:'Pendente';index" json:"status"`
	Origin            string     `gorm:"type:varchar(30)" json:"origin"`
	ApproverSignature string     `gorm:"type:varchar(255)" json:"approver_signature"` // "<status> por: <nome>"
	AnalystName       string     `gorm:"type:varchar(255)" json:"analyst_name"`
	ApprovedAt        *time.Time `json:"approved_at"`

	RequesterName   string  `gorm:"type:varchar(255)" json:"requester_name"`
	RequesterEmails string  `gorm:"type:text" json:"requester_emails"` // comma-delimited list
	RequesterPhone  string  `gorm:"type:varchar(30)" json:"requester_phone"`
	RouteLink       string  `gorm:"type:text" json:"route_link"`
	DistanceKM      float64 `gorm:"default:0" json:"distance_km"`
	Note            string  `gorm:"type:text" json:"note"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Saving is the derived negotiation gain. It is never stored; it is
// recomputed from the two independently kept amounts on every read, so a
// post-hoc correction of ApprovedValue is reflected immediately. Nothing
// forces ApprovedValue <= RequestedValue — a negotiation can raise the value
// and the saving goes negative.
func (r CostRequest) Saving() float64 {
	return r.RequestedValue - r.ApprovedValue
}
