package repository

import (
	"medprep_backend/internal/model"

	"gorm.io/gorm"
)

type TopicRepository struct {
	DB *gorm.DB
}

func NewTopicRepository(db *gorm.DB) *TopicRepository {
	return &TopicRepository{DB: db}
}

func (r *TopicRepository) CreateSpecialty(s *model.Specialty) error {
	return r.DB.Create(s).Error
}

func (r *TopicRepository) ListSpecialties() ([]model.Specialty, error) {
	var ss []model.Specialty
	err := r.DB.Order("name asc").Find(&ss).Error
	return ss, err
}

func (r *TopicRepository) CreateTopic(t *model.Topic) error {
	return r.DB.Create(t).Error
}

func (r *TopicRepository) FindTopicByID(id uint) (*model.Topic, error) {
	var t model.Topic
	err := r.DB.First(&t, id).Error
	return &t, err
}

func (r *TopicRepository) ListTopics(specialtyID uint) ([]model.Topic, error) {
	var ts []model.Topic
	query := r.DB.Model(&model.Topic{})
	if specialtyID > 0 {
		query = query.Where("specialty_id = ?", specialtyID)
	}
	err := query.Order("name asc").Find(&ts).Error
	return ts, err
}

// ListWeighted 只返回配置了权重的主题，mock_exam 分层抽题用
func (r *TopicRepository) ListWeighted() ([]model.Topic, error) {
	var ts []model.Topic
	err := r.DB.Where("weight_percentage IS NOT NULL").Order("id asc").Find(&ts).Error
	return ts, err
}

func (r *TopicRepository) UpdateTopic(t *model.Topic) error {
	return r.DB.Save(t).Error
}
