package repository

import (
	"context"
	"errors"

	"costportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestRepository interface {
	Create(ctx context.Context, req *model.CostRequest) error
	CreateBatch(ctx context.Context, reqs []model.CostRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CostRequest, error)
	ListAll(ctx context.Context) ([]model.CostRequest, error)
	Update(ctx context.Context, req *model.CostRequest) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindDuplicate(ctx context.Context, invoiceNumber, branchUF string, excludeID uuid.UUID) (*model.CostRequest, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.CostRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) CreateBatch(ctx context.Context, reqs []model.CostRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&reqs).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CostRequest, error) {
	var req model.CostRequest
	if err := GetDB(ctx, r.db).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// ListAll returns every request, newest first. Filtering and aggregation
// happen in memory on top of this snapshot.
func (r *requestRepository) ListAll(ctx context.Context) ([]model.CostRequest, error) {
	var reqs []model.CostRequest
	if err := GetDB(ctx, r.db).Order("created_at DESC").Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *requestRepository) Update(ctx context.Context, req *model.CostRequest) error {
	return GetDB(ctx, r.db).Save(req).Error
}

func (r *requestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.CostRequest{}).Error
}

// FindDuplicate looks for another request with the same invoice number and
// branch. Returns nil, nil when none exists. excludeID skips the record
// being edited; pass uuid.Nil when creating.
func (r *requestRepository) FindDuplicate(ctx context.Context, invoiceNumber, branchUF string, excludeID uuid.UUID) (*model.CostRequest, error) {
	var req model.CostRequest
	query := GetDB(ctx, r.db).Where("invoice_number = ? AND branch_uf = ?", invoiceNumber, branchUF)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}
