package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"costportal/internal/filter"
	"costportal/internal/model"
	"costportal/internal/notify"
	"costportal/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type RequestDTO struct {
	BranchUF        string  `json:"branch_uf" binding:"required,len=2"`
	BranchCNPJ      string  `json:"branch_cnpj"`
	CarrierName     string  `json:"carrier_name" binding:"required"`
	InvoiceNumber   string  `json:"invoice_number" binding:"required"`
	OrderNumber     string  `json:"order_number"`
	Reason          string  `json:"reason" binding:"required"`
	Department      string  `json:"department"`
	CostCenter      string  `json:"cost_center"`
	DestinationCity string  `json:"destination_city"`
	DestinationUF   string  `json:"destination_uf"`
	InvoiceValue    float64 `json:"invoice_value" binding:"gte=0"`
	FreightValue    float64 `json:"freight_value" binding:"gte=0"`
	RequestedValue  float64 `json:"requested_value" binding:"required,gt=0"`
	RequesterName   string  `json:"requester_name"`
	RequesterEmails string  `json:"requester_emails"`
	RequesterPhone  string  `json:"requester_phone"`
	RouteLink       string  `json:"route_link"`
	DistanceKM      float64 `json:"distance_km" binding:"gte=0"`
	Note            string  `json:"note"`
}

type ManagedRequestDTO struct {
	RequestDTO
	Status        string  `json:"status" binding:"omitempty,oneof=Pendente Aprovado Reprovado"`
	ApprovedValue float64 `json:"approved_value" binding:"gte=0"`
	AnalystName   string  `json:"analyst_name"`
}

type TransitionDTO struct {
	Status        string  `json:"status" binding:"required,oneof=Aprovado Reprovado"`
	ApprovedValue float64 `json:"approved_value" binding:"gte=0"`
	Note          string  `json:"note"`
}

type RequestResponse struct {
	ID                string  `json:"id"`
	BranchUF          string  `json:"branch_uf"`
	BranchCNPJ        string  `json:"branch_cnpj"`
	CarrierName       string  `json:"carrier_name"`
	InvoiceNumber     string  `json:"invoice_number"`
	OrderNumber       string  `json:"order_number"`
	Reason            string  `json:"reason"`
	Department        string  `json:"department"`
	CostCenter        string  `json:"cost_center"`
	DestinationCity   string  `json:"destination_city"`
	DestinationUF     string  `json:"destination_uf"`
	InvoiceValue      float64 `json:"invoice_value"`
	FreightValue      float64 `json:"freight_value"`
	RequestedValue    float64 `json:"requested_value"`
	ApprovedValue     float64 `json:"approved_value"`
	Saving            float64 `json:"saving"`
	Status            string  `json:"status"`
	Origin            string  `json:"origin"`
	ApproverSignature string  `json:"approver_signature"`
	AnalystName       string  `json:"analyst_name"`
	ApprovedAt        *string `json:"approved_at"`
	RequesterName     string  `json:"requester_name"`
	RequesterEmails   string  `json:"requester_emails"`
	RequesterPhone    string  `json:"requester_phone"`
	RouteLink         string  `json:"route_link"`
	DistanceKM        float64 `json:"distance_km"`
	Note              string  `json:"note"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// SubmitResult carries the created request plus whether the staff alert
// actually went out.
type SubmitResult struct {
	Request  RequestResponse `json:"request"`
	Notified bool            `json:"notified"`
}

type KPIEntry struct {
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type KPIBlock struct {
	Pending  KPIEntry `json:"pending"`
	Approved KPIEntry `json:"approved"`
	Rejected KPIEntry `json:"rejected"`
	Total    KPIEntry `json:"total"`
}

type ListResult struct {
	Items []RequestResponse `json:"items"`
	KPIs  KPIBlock          `json:"kpis"`
}

// Actor identifies who is performing an operation. Branch is the actor's
// scope: the wildcard grants access to every branch.
type Actor struct {
	Name   string
	Role   string
	Branch string
}

// CanAccessBranch reports whether the actor may touch records of the given
// branch.
func (a Actor) CanAccessBranch(branchUF string) bool {
	return a.Branch == model.WildcardBranch || a.Branch == branchUF
}

// DuplicateError signals that another request already exists for the same
// invoice number and branch. Callers may retry with force.
type DuplicateError struct {
	ExistingID uuid.UUID
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("a request for this invoice and branch already exists (id %s)", e.ExistingID)
}

// ErrForbiddenBranch is returned when an actor operates outside their
// branch scope.
var ErrForbiddenBranch = fmt.Errorf("request belongs to another branch")

// ErrMissingRequesterEmail is returned when a public submission carries no
// usable requester e-mail after normalization.
var ErrMissingRequesterEmail = fmt.Errorf("at least one requester e-mail is required")

// --- Interface ---

type RequestService interface {
	Submit(ctx context.Context, dto RequestDTO, force bool) (SubmitResult, error)
	Create(ctx context.Context, dto ManagedRequestDTO, actor Actor, force bool) (SubmitResult, error)
	Update(ctx context.Context, id string, dto ManagedRequestDTO, actor Actor, force bool) (SubmitResult, error)
	Transition(ctx context.Context, id string, dto TransitionDTO, actor Actor) (SubmitResult, error)
	Delete(ctx context.Context, id string, actor Actor) error
	ResendStaffAlert(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, f filter.Filter, actor Actor) (ListResult, error)
	PublishSnapshot(ctx context.Context)
}

// Notifier sends the portal's two alert kinds. Both report whether a
// message actually went out.
type Notifier interface {
	StaffAlert(ctx context.Context, req model.CostRequest, staff []model.User) (bool, error)
	DecisionAlert(ctx context.Context, req model.CostRequest, staff []model.User) (bool, error)
}

// Broadcaster pushes a payload to every connected dashboard.
type Broadcaster interface {
	Broadcast(message []byte)
}

type requestService struct {
	repo     repository.RequestRepository
	users    repository.UserRepository
	branches repository.BranchRepository
	reasons  repository.ReasonRepository
	txMgr    repository.TransactionManager
	notifier Notifier
	hub      Broadcaster // optional, nil when the feed is disabled
}

func NewRequestService(repo repository.RequestRepository, users repository.UserRepository, branches repository.BranchRepository, reasons repository.ReasonRepository, txMgr repository.TransactionManager, notifier Notifier, hub Broadcaster) RequestService {
	return &requestService{repo: repo, users: users, branches: branches, reasons: reasons, txMgr: txMgr, notifier: notifier, hub: hub}
}

// --- Implementation ---

// Submit handles the public request form. The record always enters as
// Pendente and the branch's approval staff is alerted. Text fields the form
// collects free-hand are uppercased, and the branch CNPJ plus the reason's
// department and cost center come from the catalogs, not the caller.
func (s *requestService) Submit(ctx context.Context, dto RequestDTO, force bool) (SubmitResult, error) {
	req := requestFromDTO(dto)
	req.Status = model.StatusPending
	req.Origin = model.OriginPortal
	// approved mirrors requested until someone negotiates, so saving is 0
	req.ApprovedValue = req.RequestedValue
	req.RequesterEmails = notify.JoinEmails(dto.RequesterEmails)
	if req.RequesterEmails == "" {
		return SubmitResult{}, ErrMissingRequesterEmail
	}

	req.CarrierName = strings.ToUpper(strings.TrimSpace(dto.CarrierName))
	req.DestinationCity = strings.ToUpper(strings.TrimSpace(dto.DestinationCity))
	req.RequesterName = strings.ToUpper(strings.TrimSpace(dto.RequesterName))
	if branch, lookupErr := s.branches.GetByUF(ctx, req.BranchUF); lookupErr == nil && branch != nil {
		req.BranchCNPJ = branch.CNPJ
	}
	if reason, lookupErr := s.reasons.GetByKey(ctx, model.NormalizeReasonKey(req.Reason)); lookupErr == nil && reason != nil {
		req.Department = reason.Department
		req.CostCenter = reason.CostCenter
	}

	err := s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		if !force {
			if dupErr := s.checkDuplicate(txCtx, req.InvoiceNumber, req.BranchUF, uuid.Nil); dupErr != nil {
				return dupErr
			}
		}
		if createErr := s.repo.Create(txCtx, &req); createErr != nil {
			return fmt.Errorf("failed to create request: %w", createErr)
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	notified := s.sendStaffAlert(ctx, req)
	s.PublishSnapshot(ctx)

	return SubmitResult{Request: toRequestResponse(req), Notified: notified}, nil
}

// Create inserts a record from the dashboard. The actor must be scoped to
// the record's branch. A record created directly in a decided status gets
// the actor's signature and, when nobody was told otherwise, the actor as
// analyst.
func (s *requestService) Create(ctx context.Context, dto ManagedRequestDTO, actor Actor, force bool) (SubmitResult, error) {
	if !actor.CanAccessBranch(dto.BranchUF) {
		return SubmitResult{}, ErrForbiddenBranch
	}

	req := requestFromDTO(dto.RequestDTO)
	req.Origin = model.OriginManual
	req.RequesterEmails = notify.JoinEmails(dto.RequesterEmails)
	req.Status = dto.Status
	if req.Status == "" {
		req.Status = model.StatusPending
	}
	req.AnalystName = dto.AnalystName

	if req.Status == model.StatusPending {
		req.ApprovedValue = req.RequestedValue
	} else {
		now := time.Now()
		req.ApprovedValue = dto.ApprovedValue
		req.ApprovedAt = &now
		req.ApproverSignature = fmt.Sprintf("%s por: %s", req.Status, actor.Name)
		if req.AnalystName == "" {
			req.AnalystName = actor.Name
		}
	}

	err := s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		if !force {
			if dupErr := s.checkDuplicate(txCtx, req.InvoiceNumber, req.BranchUF, uuid.Nil); dupErr != nil {
				return dupErr
			}
		}
		if createErr := s.repo.Create(txCtx, &req); createErr != nil {
			return fmt.Errorf("failed to create request: %w", createErr)
		}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	notified := false
	if req.Status == model.StatusPending {
		notified = s.sendStaffAlert(ctx, req)
	} else {
		notified = s.sendDecisionAlert(ctx, req)
	}
	s.PublishSnapshot(ctx)

	return SubmitResult{Request: toRequestResponse(req), Notified: notified}, nil
}

// Update edits an existing record. The decision alert is re-sent only when
// the edit actually moves the record into a decided status; editing fields
// of an already decided record stays silent.
func (s *requestService) Update(ctx context.Context, id string, dto ManagedRequestDTO, actor Actor, force bool) (SubmitResult, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("invalid request id: %w", err)
	}

	var updated model.CostRequest
	var statusChanged bool

	err = s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		current, findErr := s.repo.FindByID(txCtx, reqID)
		if findErr != nil {
			return fmt.Errorf("request not found: %w", findErr)
		}
		if !actor.CanAccessBranch(current.BranchUF) {
			return ErrForbiddenBranch
		}
		if !actor.CanAccessBranch(dto.BranchUF) {
			return ErrForbiddenBranch
		}

		// every save re-checks; a record forced in as a duplicate keeps
		// warning until the collision is resolved or forced again
		if !force {
			if dupErr := s.checkDuplicate(txCtx, dto.InvoiceNumber, dto.BranchUF, reqID); dupErr != nil {
				return dupErr
			}
		}

		previousStatus := current.Status
		applyDTO(current, dto.RequestDTO)
		current.RequesterEmails = notify.JoinEmails(dto.RequesterEmails)
		current.ApprovedValue = dto.ApprovedValue
		if dto.AnalystName != "" {
			current.AnalystName = dto.AnalystName
		}
		if dto.Status != "" {
			current.Status = dto.Status
		}

		if current.Status == model.StatusPending && current.ApprovedValue == 0 {
			current.ApprovedValue = current.RequestedValue
		}

		if current.Status != previousStatus {
			statusChanged = true
			if current.Status == model.StatusPending {
				current.ApprovedAt = nil
				current.ApproverSignature = ""
				current.ApprovedValue = current.RequestedValue
			} else {
				now := time.Now()
				current.ApprovedAt = &now
				current.ApproverSignature = fmt.Sprintf("%s por: %s", current.Status, actor.Name)
				if current.AnalystName == "" {
					current.AnalystName = actor.Name
				}
			}
		}

		if saveErr := s.repo.Update(txCtx, current); saveErr != nil {
			return fmt.Errorf("failed to update request: %w", saveErr)
		}
		updated = *current
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	notified := false
	if statusChanged && updated.Status != model.StatusPending {
		notified = s.sendDecisionAlert(ctx, updated)
	}
	s.PublishSnapshot(ctx)

	return SubmitResult{Request: toRequestResponse(updated), Notified: notified}, nil
}

// Transition decides a pending request.
func (s *requestService) Transition(ctx context.Context, id string, dto TransitionDTO, actor Actor) (SubmitResult, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("invalid request id: %w", err)
	}

	var decided model.CostRequest
	err = s.txMgr.RunInTx(ctx, func(txCtx context.Context) error {
		current, findErr := s.repo.FindByID(txCtx, reqID)
		if findErr != nil {
			return fmt.Errorf("request not found: %w", findErr)
		}
		if !actor.CanAccessBranch(current.BranchUF) {
			return ErrForbiddenBranch
		}
		if current.Status != model.StatusPending {
			return fmt.Errorf("request is already %s", current.Status)
		}

		now := time.Now()
		current.Status = dto.Status
		current.ApprovedAt = &now
		current.ApproverSignature = fmt.Sprintf("%s por: %s", dto.Status, actor.Name)
		current.AnalystName = actor.Name
		if dto.Note != "" {
			current.Note = dto.Note
		}
		// a rejection only stamps status, signature and date; the
		// approved value keeps mirroring the requested one
		if dto.Status == model.StatusApproved {
			current.ApprovedValue = dto.ApprovedValue
			if current.ApprovedValue == 0 {
				current.ApprovedValue = current.RequestedValue
			}
		}

		if saveErr := s.repo.Update(txCtx, current); saveErr != nil {
			return fmt.Errorf("failed to update request: %w", saveErr)
		}
		decided = *current
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}

	notified := s.sendDecisionAlert(ctx, decided)
	s.PublishSnapshot(ctx)

	return SubmitResult{Request: toRequestResponse(decided), Notified: notified}, nil
}

func (s *requestService) Delete(ctx context.Context, id string, actor Actor) error {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid request id: %w", err)
	}

	current, err := s.repo.FindByID(ctx, reqID)
	if err != nil {
		return fmt.Errorf("request not found: %w", err)
	}
	if !actor.CanAccessBranch(current.BranchUF) {
		return ErrForbiddenBranch
	}

	if err := s.repo.Delete(ctx, reqID); err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	s.PublishSnapshot(ctx)
	return nil
}

// ResendStaffAlert re-sends the new-request notice for a pending record.
func (s *requestService) ResendStaffAlert(ctx context.Context, id string) (bool, error) {
	reqID, err := uuid.Parse(id)
	if err != nil {
		return false, fmt.Errorf("invalid request id: %w", err)
	}

	req, err := s.repo.FindByID(ctx, reqID)
	if err != nil {
		return false, fmt.Errorf("request not found: %w", err)
	}
	if req.Status != model.StatusPending {
		return false, fmt.Errorf("request is already %s", req.Status)
	}

	staff, err := s.users.ListNotifiable(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load notification staff: %w", err)
	}
	sent, err := s.notifier.StaffAlert(ctx, *req, staff)
	if err != nil {
		return false, err
	}
	return sent, nil
}

// List returns filtered requests plus the status KPI block. Actors scoped
// to one branch only ever see that branch.
func (s *requestService) List(ctx context.Context, f filter.Filter, actor Actor) (ListResult, error) {
	if actor.Branch != model.WildcardBranch {
		f.Branch = actor.Branch
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return ListResult{}, fmt.Errorf("failed to list requests: %w", err)
	}
	matched := f.Apply(all)

	result := ListResult{Items: make([]RequestResponse, 0, len(matched))}
	for _, r := range matched {
		result.Items = append(result.Items, toRequestResponse(r))

		value := r.RequestedValue
		switch r.Status {
		case model.StatusPending:
			result.KPIs.Pending.Count++
			result.KPIs.Pending.Value += value
		case model.StatusApproved:
			value = r.ApprovedValue
			result.KPIs.Approved.Count++
			result.KPIs.Approved.Value += value
		case model.StatusRejected:
			result.KPIs.Rejected.Count++
			result.KPIs.Rejected.Value += value
		}
		result.KPIs.Total.Count++
		result.KPIs.Total.Value += value
	}
	return result, nil
}

// PublishSnapshot pushes the full request list to every connected
// dashboard. Failures are logged, never propagated: the feed is a
// convenience, not part of any operation's contract.
func (s *requestService) PublishSnapshot(ctx context.Context) {
	if s.hub == nil {
		return
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		log.Printf("snapshot publish skipped: %v", err)
		return
	}

	items := make([]RequestResponse, 0, len(all))
	for _, r := range all {
		items = append(items, toRequestResponse(r))
	}
	payload, err := json.Marshal(map[string]interface{}{
		"event": "requests_snapshot",
		"data":  items,
	})
	if err != nil {
		log.Printf("snapshot publish skipped: %v", err)
		return
	}
	s.hub.Broadcast(payload)
}

// --- Helpers ---

func (s *requestService) checkDuplicate(ctx context.Context, invoiceNumber, branchUF string, excludeID uuid.UUID) error {
	existing, err := s.repo.FindDuplicate(ctx, invoiceNumber, branchUF, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicates: %w", err)
	}
	if existing != nil {
		return &DuplicateError{ExistingID: existing.ID}
	}
	return nil
}

func (s *requestService) sendStaffAlert(ctx context.Context, req model.CostRequest) bool {
	staff, err := s.users.ListNotifiable(ctx)
	if err != nil {
		log.Printf("staff alert skipped for request %s: %v", req.ID, err)
		return false
	}
	sent, err := s.notifier.StaffAlert(ctx, req, staff)
	if err != nil {
		log.Printf("staff alert failed for request %s: %v", req.ID, err)
		return false
	}
	return sent
}

func (s *requestService) sendDecisionAlert(ctx context.Context, req model.CostRequest) bool {
	staff, err := s.users.ListNotifiable(ctx)
	if err != nil {
		log.Printf("decision alert skipped for request %s: %v", req.ID, err)
		return false
	}
	sent, err := s.notifier.DecisionAlert(ctx, req, staff)
	if err != nil {
		log.Printf("decision alert failed for request %s: %v", req.ID, err)
		return false
	}
	return sent
}

func requestFromDTO(dto RequestDTO) model.CostRequest {
	return model.CostRequest{
		BranchUF:        dto.BranchUF,
		BranchCNPJ:      dto.BranchCNPJ,
		CarrierName:     dto.CarrierName,
		InvoiceNumber:   dto.InvoiceNumber,
		OrderNumber:     dto.OrderNumber,
		Reason:          dto.Reason,
		Department:      dto.Department,
		CostCenter:      dto.CostCenter,
		DestinationCity: dto.DestinationCity,
		DestinationUF:   dto.DestinationUF,
		InvoiceValue:    dto.InvoiceValue,
		FreightValue:    dto.FreightValue,
		RequestedValue:  dto.RequestedValue,
		RequesterName:   dto.RequesterName,
		RequesterEmails: dto.RequesterEmails,
		RequesterPhone:  dto.RequesterPhone,
		RouteLink:       dto.RouteLink,
		DistanceKM:      dto.DistanceKM,
		Note:            dto.Note,
	}
}

func applyDTO(req *model.CostRequest, dto RequestDTO) {
	req.BranchUF = dto.BranchUF
	req.BranchCNPJ = dto.BranchCNPJ
	req.CarrierName = dto.CarrierName
	req.InvoiceNumber = dto.InvoiceNumber
	req.OrderNumber = dto.OrderNumber
	req.Reason = dto.Reason
	req.Department = dto.Department
	req.CostCenter = dto.CostCenter
	req.DestinationCity = dto.DestinationCity
	req.DestinationUF = dto.DestinationUF
	req.InvoiceValue = dto.InvoiceValue
	req.FreightValue = dto.FreightValue
	req.RequestedValue = dto.RequestedValue
	req.RequesterName = dto.RequesterName
	req.RequesterEmails = dto.RequesterEmails
	req.RequesterPhone = dto.RequesterPhone
	req.RouteLink = dto.RouteLink
	req.DistanceKM = dto.DistanceKM
	req.Note = dto.Note
}

func toRequestResponse(r model.CostRequest) RequestResponse {
	resp := RequestResponse{
		ID:                r.ID.String(),
		BranchUF:          r.BranchUF,
		BranchCNPJ:        r.BranchCNPJ,
		CarrierName:       r.CarrierName,
		InvoiceNumber:     r.InvoiceNumber,
		OrderNumber:       r.OrderNumber,
		Reason:            r.Reason,
		Department:        r.Department,
		CostCenter:        r.CostCenter,
		DestinationCity:   r.DestinationCity,
		DestinationUF:     r.DestinationUF,
		InvoiceValue:      r.InvoiceValue,
		FreightValue:      r.FreightValue,
		RequestedValue:    r.RequestedValue,
		ApprovedValue:     r.ApprovedValue,
		Saving:            r.Saving(),
		Status:            r.Status,
		Origin:            r.Origin,
		ApproverSignature: r.ApproverSignature,
		AnalystName:       r.AnalystName,
		RequesterName:     r.RequesterName,
		RequesterEmails:   r.RequesterEmails,
		RequesterPhone:    r.RequesterPhone,
		RouteLink:         r.RouteLink,
		DistanceKM:        r.DistanceKM,
		Note:              r.Note,
		CreatedAt:         r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         r.UpdatedAt.Format(time.RFC3339),
	}
	if r.ApprovedAt != nil {
		s := r.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &s
	}
	return resp
}
