package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"medprep_backend/internal/model"
	"medprep_backend/internal/repository"
	"medprep_backend/internal/util"
	"path/filepath"
	"time"

	"gorm.io/gorm"
)

// CatalogService 题库与分类的管理端写路径。学生端只通过抽题器读题库
type CatalogService struct {
	QuestionRepo *repository.QuestionRepository
	TopicRepo    *repository.TopicRepository
	Storage      *StorageService
}

func NewCatalogService(questionRepo *repository.QuestionRepository, topicRepo *repository.TopicRepository, storage *StorageService) *CatalogService {
	return &CatalogService{
		QuestionRepo: questionRepo,
		TopicRepo:    topicRepo,
		Storage:      storage,
	}
}

func (s *CatalogService) CreateSpecialty(name string) (*model.Specialty, error) {
	if name == "" {
		return nil, errors.New("name is required")
	}
	specialty := &model.Specialty{Name: name}
	if err := s.TopicRepo.CreateSpecialty(specialty); err != nil {
		return nil, err
	}
	return specialty, nil
}

func (s *CatalogService) ListSpecialties() ([]model.Specialty, error) {
	return s.TopicRepo.ListSpecialties()
}

type TopicReq struct {
	SpecialtyID      uint     `json:"specialtyId" binding:"required"`
	Name             string   `json:"name" binding:"required"`
	WeightPercentage *float64 `json:"weightPercentage"`
}

func (s *CatalogService) CreateTopic(req TopicReq) (*model.Topic, error) {
	if req.WeightPercentage != nil && (*req.WeightPercentage <= 0 || *req.WeightPercentage > 100) {
		return nil, errors.New("weightPercentage must be in (0, 100]")
	}
	topic := &model.Topic{
		SpecialtyID:      req.SpecialtyID,
		Name:             req.Name,
		WeightPercentage: req.WeightPercentage,
	}
	if err := s.TopicRepo.CreateTopic(topic); err != nil {
		return nil, err
	}
	return topic, nil
}

func (s *CatalogService) ListTopics(specialtyID uint) ([]model.Topic, error) {
	return s.TopicRepo.ListTopics(specialtyID)
}

// UpdateTopicWeight weight 传 nil 表示该主题退出加权抽样
func (s *CatalogService) UpdateTopicWeight(topicID uint, weight *float64) (*model.Topic, error) {
	if weight != nil && (*weight <= 0 || *weight > 100) {
		return nil, errors.New("weightPercentage must be in (0, 100]")
	}
	topic, err := s.TopicRepo.FindTopicByID(topicID)
	if err != nil {
		return nil, err
	}
	topic.WeightPercentage = weight
	if err := s.TopicRepo.UpdateTopic(topic); err != nil {
		return nil, err
	}
	return topic, nil
}

type AlternativeReq struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type QuestionReq struct {
	TopicID      uint             `json:"topicId" binding:"required"`
	Statement    string           `json:"statement" binding:"required"`
	Alternatives []AlternativeReq `json:"alternatives" binding:"required"`
}

// CreateQuestion 新建底层题目的第一个变体（variation_number=1, version=1）
func (s *CatalogService) CreateQuestion(req QuestionReq) (*model.QuestionVariation, error) {
	if err := validateAlternatives(req.Alternatives); err != nil {
		return nil, err
	}

	baseID, err := s.QuestionRepo.NextBaseQuestionID()
	if err != nil {
		return nil, err
	}
	return s.createVariation(baseID, 1, 1, req)
}

// AddVariation 同一底层题目增加一个新措辞（variation_number+1, version=1）
func (s *CatalogService) AddVariation(baseQuestionID uint, req QuestionReq) (*model.QuestionVariation, error) {
	if err := validateAlternatives(req.Alternatives); err != nil {
		return nil, err
	}

	maxNum, err := s.QuestionRepo.MaxVariationNumber(baseQuestionID)
	if err != nil {
		return nil, err
	}
	if maxNum == 0 {
		return nil, util.ErrVariationNotFound
	}
	return s.createVariation(baseQuestionID, maxNum+1, 1, req)
}

// ReviseVariation 修订某个变体：同题位、version+1 的新记录
// 旧版本保留在库里供历史会话复盘，抽题器永远只取最高版本
func (s *CatalogService) ReviseVariation(variationID uint, req QuestionReq) (*model.QuestionVariation, error) {
	if err := validateAlternatives(req.Alternatives); err != nil {
		return nil, err
	}

	old, err := s.QuestionRepo.FindByIDWithAlternatives(variationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrVariationNotFound
		}
		return nil, err
	}

	maxVersion, err := s.QuestionRepo.MaxVersion(old.BaseQuestionID, old.VariationNumber)
	if err != nil {
		return nil, err
	}
	return s.createVariation(old.BaseQuestionID, old.VariationNumber, maxVersion+1, req)
}

func (s *CatalogService) SetVisibility(variationID uint, visible bool) error {
	return s.QuestionRepo.SetVisibility(variationID, visible)
}

// AttachImage 上传题干配图并回填 URL
func (s *CatalogService) AttachImage(ctx context.Context, variationID uint, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	if _, err := s.QuestionRepo.FindByIDWithAlternatives(variationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", util.ErrVariationNotFound
		}
		return "", err
	}

	objectName := fmt.Sprintf("questions/%d/%d%s", variationID, time.Now().UnixNano(), filepath.Ext(filename))
	url, err := s.Storage.Upload(ctx, objectName, reader, size, contentType)
	if err != nil {
		return "", err
	}
	if err := s.QuestionRepo.UpdateImageURL(variationID, url); err != nil {
		return "", err
	}
	return url, nil
}

func (s *CatalogService) createVariation(baseID uint, variationNumber, version int, req QuestionReq) (*model.QuestionVariation, error) {
	variation := &model.QuestionVariation{
		BaseQuestionID:  baseID,
		VariationNumber: variationNumber,
		Version:         version,
		TopicID:         req.TopicID,
		Statement:       req.Statement,
		IsVisible:       true,
	}
	for i, a := range req.Alternatives {
		variation.Alternatives = append(variation.Alternatives, model.Alternative{
			Text:      a.Text,
			IsCorrect: a.IsCorrect,
			Order:     i,
		})
	}
	if err := s.QuestionRepo.CreateVariation(variation); err != nil {
		return nil, err
	}
	return variation, nil
}

// validateAlternatives 至少两个选项且恰好一个正确
func validateAlternatives(alts []AlternativeReq) error {
	if len(alts) < 2 {
		return errors.New("at least two alternatives are required")
	}
	correct := 0
	for _, a := range alts {
		if a.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("exactly one alternative must be correct, got %d", correct)
	}
	return nil
}
