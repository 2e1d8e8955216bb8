package repository

import (
	"medprep_backend/internal/model"

	"gorm.io/gorm"
)

type PackageRepository struct {
	DB *gorm.DB
}

func NewPackageRepository(db *gorm.DB) *PackageRepository {
	return &PackageRepository{DB: db}
}

func (r *PackageRepository) ListActive() ([]model.Package, error) {
	var pkgs []model.Package
	err := r.DB.Where("is_active = ?", true).Order("price_cents asc").Find(&pkgs).Error
	return pkgs, err
}

func (r *PackageRepository) FindByID(id uint) (*model.Package, error) {
	var pkg model.Package
	err := r.DB.First(&pkg, id).Error
	return &pkg, err
}
