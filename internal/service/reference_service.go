package service

import (
	"context"
	"fmt"

	"costportal/internal/model"
	"costportal/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type BranchDTO struct {
	UF   string `json:"uf" binding:"required,len=2"`
	Name string `json:"name" binding:"required"`
	CNPJ string `json:"cnpj"`
}

type ReasonDTO struct {
	Name       string `json:"name" binding:"required"`
	Department string `json:"department" binding:"omitempty,oneof=Logística Comercial Expedição Financeiro Transportadora"`
	CostCenter string `json:"cost_center"`
}

type CarrierDTO struct {
	Name string `json:"name" binding:"required"`
	CNPJ string `json:"cnpj"`
}

// --- Interfaces ---

type BranchService interface {
	Save(ctx context.Context, dto BranchDTO) (model.Branch, error)
	List(ctx context.Context) ([]model.Branch, error)
	Delete(ctx context.Context, uf string) error
}

type ReasonService interface {
	Save(ctx context.Context, dto ReasonDTO) (model.Reason, error)
	List(ctx context.Context) ([]model.Reason, error)
	Delete(ctx context.Context, key string) error
}

type CarrierService interface {
	Create(ctx context.Context, dto CarrierDTO) (model.Carrier, error)
	List(ctx context.Context) ([]model.Carrier, error)
	Update(ctx context.Context, id string, dto CarrierDTO) (model.Carrier, error)
	Delete(ctx context.Context, id string) error
}

// --- Branch ---

type branchService struct {
	repo repository.BranchRepository
}

func NewBranchService(repo repository.BranchRepository) BranchService {
	return &branchService{repo: repo}
}

// Save creates or replaces the branch keyed by UF.
func (s *branchService) Save(ctx context.Context, dto BranchDTO) (model.Branch, error) {
	branch := model.Branch{UF: dto.UF, Name: dto.Name, CNPJ: dto.CNPJ}
	if err := s.repo.Upsert(ctx, &branch); err != nil {
		return model.Branch{}, fmt.Errorf("failed to save branch: %w", err)
	}
	return branch, nil
}

func (s *branchService) List(ctx context.Context) ([]model.Branch, error) {
	return s.repo.List(ctx)
}

func (s *branchService) Delete(ctx context.Context, uf string) error {
	if _, err := s.repo.GetByUF(ctx, uf); err != nil {
		return fmt.Errorf("branch not found: %w", err)
	}
	return s.repo.Delete(ctx, uf)
}

// --- Reason ---

type reasonService struct {
	repo repository.ReasonRepository
}

func NewReasonService(repo repository.ReasonRepository) ReasonService {
	return &reasonService{repo: repo}
}

// Save creates or replaces a reason. The key derives from the name, so
// renaming a reason creates a new entry.
func (s *reasonService) Save(ctx context.Context, dto ReasonDTO) (model.Reason, error) {
	reason := model.Reason{
		Key:        model.NormalizeReasonKey(dto.Name),
		Name:       dto.Name,
		Department: dto.Department,
		CostCenter: dto.CostCenter,
	}
	if reason.Department == "" {
		reason.Department = model.DeptLogistics
	}
	if err := s.repo.Upsert(ctx, &reason); err != nil {
		return model.Reason{}, fmt.Errorf("failed to save reason: %w", err)
	}
	return reason, nil
}

func (s *reasonService) List(ctx context.Context) ([]model.Reason, error) {
	return s.repo.List(ctx)
}

func (s *reasonService) Delete(ctx context.Context, key string) error {
	normalized := model.NormalizeReasonKey(key)
	if _, err := s.repo.GetByKey(ctx, normalized); err != nil {
		return fmt.Errorf("reason not found: %w", err)
	}
	return s.repo.Delete(ctx, normalized)
}

// --- Carrier ---

type carrierService struct {
	repo repository.CarrierRepository
}

func NewCarrierService(repo repository.CarrierRepository) CarrierService {
	return &carrierService{repo: repo}
}

func (s *carrierService) Create(ctx context.Context, dto CarrierDTO) (model.Carrier, error) {
	carrier := model.Carrier{Name: dto.Name, CNPJ: dto.CNPJ}
	if err := s.repo.Create(ctx, &carrier); err != nil {
		return model.Carrier{}, fmt.Errorf("failed to create carrier: %w", err)
	}
	return carrier, nil
}

func (s *carrierService) List(ctx context.Context) ([]model.Carrier, error) {
	return s.repo.List(ctx)
}

func (s *carrierService) Update(ctx context.Context, id string, dto CarrierDTO) (model.Carrier, error) {
	carrierID, err := uuid.Parse(id)
	if err != nil {
		return model.Carrier{}, fmt.Errorf("invalid carrier id: %w", err)
	}
	carrier := model.Carrier{ID: carrierID, Name: dto.Name, CNPJ: dto.CNPJ}
	if err := s.repo.Update(ctx, &carrier); err != nil {
		return model.Carrier{}, fmt.Errorf("failed to update carrier: %w", err)
	}
	return carrier, nil
}

func (s *carrierService) Delete(ctx context.Context, id string) error {
	carrierID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid carrier id: %w", err)
	}
	return s.repo.Delete(ctx, carrierID)
}
