package repository

import (
	"context"

	"costportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BranchRepository interface {
	Upsert(ctx context.Context, branch *model.Branch) error
	List(ctx context.Context) ([]model.Branch, error)
	GetByUF(ctx context.Context, uf string) (*model.Branch, error)
	Delete(ctx context.Context, uf string) error
}

type branchRepository struct {
	db *gorm.DB
}

func NewBranchRepository(db *gorm.DB) BranchRepository {
	return &branchRepository{db: db}
}

func (r *branchRepository) Upsert(ctx context.Context, branch *model.Branch) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uf"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "cnpj"}),
	}).Create(branch).Error
}

func (r *branchRepository) List(ctx context.Context) ([]model.Branch, error) {
	var branches []model.Branch
	if err := GetDB(ctx, r.db).Order("uf ASC").Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}

func (r *branchRepository) GetByUF(ctx context.Context, uf string) (*model.Branch, error) {
	var branch model.Branch
	if err := GetDB(ctx, r.db).First(&branch, "uf = ?", uf).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepository) Delete(ctx context.Context, uf string) error {
	return GetDB(ctx, r.db).Where("uf = ?", uf).Delete(&model.Branch{}).Error
}

type ReasonRepository interface {
	Upsert(ctx context.Context, reason *model.Reason) error
	List(ctx context.Context) ([]model.Reason, error)
	GetByKey(ctx context.Context, key string) (*model.Reason, error)
	Delete(ctx context.Context, key string) error
}

type reasonRepository struct {
	db *gorm.DB
}

func NewReasonRepository(db *gorm.DB) ReasonRepository {
	return &reasonRepository{db: db}
}

func (r *reasonRepository) Upsert(ctx context.Context, reason *model.Reason) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "department", "cost_center"}),
	}).Create(reason).Error
}

func (r *reasonRepository) List(ctx context.Context) ([]model.Reason, error) {
	var reasons []model.Reason
	if err := GetDB(ctx, r.db).Order("name ASC").Find(&reasons).Error; err != nil {
		return nil, err
	}
	return reasons, nil
}

func (r *reasonRepository) GetByKey(ctx context.Context, key string) (*model.Reason, error) {
	var reason model.Reason
	if err := GetDB(ctx, r.db).First(&reason, "key = ?", key).Error; err != nil {
		return nil, err
	}
	return &reason, nil
}

func (r *reasonRepository) Delete(ctx context.Context, key string) error {
	return GetDB(ctx, r.db).Where("key = ?", key).Delete(&model.Reason{}).Error
}

type CarrierRepository interface {
	Create(ctx context.Context, carrier *model.Carrier) error
	List(ctx context.Context) ([]model.Carrier, error)
	Update(ctx context.Context, carrier *model.Carrier) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type carrierRepository struct {
	db *gorm.DB
}

func NewCarrierRepository(db *gorm.DB) CarrierRepository {
	return &carrierRepository{db: db}
}

func (r *carrierRepository) Create(ctx context.Context, carrier *model.Carrier) error {
	return GetDB(ctx, r.db).Create(carrier).Error
}

func (r *carrierRepository) List(ctx context.Context) ([]model.Carrier, error) {
	var carriers []model.Carrier
	if err := GetDB(ctx, r.db).Order("name ASC").Find(&carriers).Error; err != nil {
		return nil, err
	}
	return carriers, nil
}

func (r *carrierRepository) Update(ctx context.Context, carrier *model.Carrier) error {
	return GetDB(ctx, r.db).Save(carrier).Error
}

func (r *carrierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Carrier{}).Error
}
