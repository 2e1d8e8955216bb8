package repository

import (
	"medprep_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository struct {
	DB *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{DB: db}
}

func (r *PurchaseRepository) Create(p *model.Purchase) error {
	return r.DB.Create(p).Error
}

func (r *PurchaseRepository) FindByID(id uint) (*model.Purchase, error) {
	var p model.Purchase
	err := r.DB.Preload("Package").First(&p, id).Error
	return &p, err
}

func (r *PurchaseRepository) ListByUser(userID uint) ([]model.Purchase, error) {
	var ps []model.Purchase
	err := r.DB.Preload("Package").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&ps).Error
	return ps, err
}

// FindForUpdate 在事务内对购买记录加行锁，序列化同一 Purchase 上的并发开考
func (r *PurchaseRepository) FindForUpdate(tx *gorm.DB, id uint) (*model.Purchase, error) {
	var p model.Purchase
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	return &p, err
}

// ConsumeSession 带守卫条件的用量递增，返回是否真正扣减成功
// WHERE sessions_used < sessions_total 保证 sessions_used 永不越界
func (r *PurchaseRepository) ConsumeSession(tx *gorm.DB, id uint) (bool, error) {
	res := tx.Model(&model.Purchase{}).
		Where("id = ? AND status = ? AND sessions_used < sessions_total", id, model.PurchaseActive).
		UpdateColumn("sessions_used", gorm.Expr("sessions_used + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PurchaseRepository) UpdateStatus(id uint, status model.PurchaseStatus) error {
	return r.DB.Model(&model.Purchase{}).Where("id = ?", id).Update("status", status).Error
}
