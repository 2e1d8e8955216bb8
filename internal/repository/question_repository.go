package repository

import (
	"medprep_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// ListEligible 返回可见的题目版本（含选项），topicID 为 0 时不过滤主题
// 同一题位的历史版本仍会返回，去重留最新版交给抽题器处理
func (r *QuestionRepository) ListEligible(topicID uint) ([]model.QuestionVariation, error) {
	var vs []model.QuestionVariation
	query := r.DB.Preload("Alternatives", func(db *gorm.DB) *gorm.DB {
		return db.Order("display_order asc")
	}).Where("is_visible = ?", true)
	if topicID > 0 {
		query = query.Where("topic_id = ?", topicID)
	}
	err := query.Find(&vs).Error
	return vs, err
}

func (r *QuestionRepository) FindByIDWithAlternatives(id uint) (*model.QuestionVariation, error) {
	var v model.QuestionVariation
	err := r.DB.Preload("Alternatives", func(db *gorm.DB) *gorm.DB {
		return db.Order("display_order asc")
	}).First(&v, id).Error
	return &v, err
}

func (r *QuestionRepository) FindByIDs(ids []uint) ([]model.QuestionVariation, error) {
	var vs []model.QuestionVariation
	err := r.DB.Preload("Alternatives", func(db *gorm.DB) *gorm.DB {
		return db.Order("display_order asc")
	}).Where("id IN ?", ids).Find(&vs).Error
	return vs, err
}

// CreateVariation 原子创建题目版本与其选项
func (r *QuestionRepository) CreateVariation(v *model.QuestionVariation) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(v).Error
	})
}

// MaxVersion 某个题位当前的最高版本号，没有记录时返回 0
func (r *QuestionRepository) MaxVersion(baseQuestionID uint, variationNumber int) (int, error) {
	var maxVersion *int
	err := r.DB.Model(&model.QuestionVariation{}).
		Where("base_question_id = ? AND variation_number = ?", baseQuestionID, variationNumber).
		Select("MAX(version)").Scan(&maxVersion).Error
	if err != nil || maxVersion == nil {
		return 0, err
	}
	return *maxVersion, nil
}

// MaxVariationNumber 某个底层题目现有的最大变体号，没有记录时返回 0
func (r *QuestionRepository) MaxVariationNumber(baseQuestionID uint) (int, error) {
	var maxNum *int
	err := r.DB.Model(&model.QuestionVariation{}).
		Where("base_question_id = ?", baseQuestionID).
		Select("MAX(variation_number)").Scan(&maxNum).Error
	if err != nil || maxNum == nil {
		return 0, err
	}
	return *maxNum, nil
}

// NextBaseQuestionID 新底层题目的ID（现有最大值+1）
func (r *QuestionRepository) NextBaseQuestionID() (uint, error) {
	var maxID *uint
	err := r.DB.Model(&model.QuestionVariation{}).
		Select("MAX(base_question_id)").Scan(&maxID).Error
	if err != nil || maxID == nil {
		return 1, err
	}
	return *maxID + 1, nil
}

func (r *QuestionRepository) SetVisibility(id uint, visible bool) error {
	return r.DB.Model(&model.QuestionVariation{}).Where("id = ?", id).Update("is_visible", visible).Error
}

func (r *QuestionRepository) UpdateImageURL(id uint, url string) error {
	return r.DB.Model(&model.QuestionVariation{}).Where("id = ?", id).Update("image_url", url).Error
}
