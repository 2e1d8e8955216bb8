package service

import (
	"context"
	"errors"
	"medprep_backend/internal/model"
	"medprep_backend/internal/repository"
	"medprep_backend/internal/util"

	"gorm.io/gorm"
)

// PurchaseService 套餐与购买的读路径，以及结算/激活两个写入口
// 实际扣款在外部账务系统完成，这里只维护配额台账的状态
type PurchaseService struct {
	PurchaseRepo *repository.PurchaseRepository
	PackageRepo  *repository.PackageRepository
	Cache        *CacheService
}

func NewPurchaseService(purchaseRepo *repository.PurchaseRepository, packageRepo *repository.PackageRepository, cache *CacheService) *PurchaseService {
	return &PurchaseService{
		PurchaseRepo: purchaseRepo,
		PackageRepo:  packageRepo,
		Cache:        cache,
	}
}

// ListPackages 在售套餐，redis 读缓存
func (s *PurchaseService) ListPackages(ctx context.Context) ([]model.Package, error) {
	if s.Cache != nil {
		if pkgs, ok := s.Cache.GetPackages(ctx); ok {
			return pkgs, nil
		}
	}

	pkgs, err := s.PackageRepo.ListActive()
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.SetPackages(ctx, pkgs)
	}
	return pkgs, nil
}

func (s *PurchaseService) ListPurchases(userID uint) ([]model.Purchase, error) {
	return s.PurchaseRepo.ListByUser(userID)
}

// Checkout 创建待支付的购买记录，配额取自套餐的 session_qty
func (s *PurchaseService) Checkout(userID, packageID uint) (*model.Purchase, error) {
	pkg, err := s.PackageRepo.FindByID(packageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPackageNotFound
		}
		return nil, err
	}
	if !pkg.IsActive {
		return nil, util.ErrPackageNotFound
	}

	purchase := &model.Purchase{
		UserID:        userID,
		PackageID:     pkg.ID,
		SessionsTotal: pkg.SessionQty,
		SessionsUsed:  0,
		Status:        model.PurchasePending,
	}
	if err := s.PurchaseRepo.Create(purchase); err != nil {
		return nil, err
	}
	purchase.Package = pkg
	return purchase, nil
}

// Activate 账务确认回调：pending → active。重复激活幂等
func (s *PurchaseService) Activate(purchaseID uint) (*model.Purchase, error) {
	purchase, err := s.PurchaseRepo.FindByID(purchaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPurchaseNotFound
		}
		return nil, err
	}

	switch purchase.Status {
	case model.PurchaseActive:
		return purchase, nil
	case model.PurchasePending:
		if err := s.PurchaseRepo.UpdateStatus(purchaseID, model.PurchaseActive); err != nil {
			return nil, err
		}
		purchase.Status = model.PurchaseActive
		return purchase, nil
	default:
		// 已过期/已取消的购买不能复活
		return nil, util.ErrPurchaseNotActive
	}
}
