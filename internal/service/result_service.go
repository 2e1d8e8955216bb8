package service

import (
	"errors"
	"medprep_backend/internal/model"
	"medprep_backend/internal/repository"
	"medprep_backend/internal/util"

	"gorm.io/gorm"
)

// ResultService 结果投影：已完成会话的题目、选项与作答对照视图
type ResultService struct {
	SessionRepo *repository.SessionRepository
}

func NewResultService(sessionRepo *repository.SessionRepository) *ResultService {
	return &ResultService{SessionRepo: sessionRepo}
}

// ResultQuestion 单题的复盘视图：题干、全部选项（含正确标记）与该题作答（可能为空）
type ResultQuestion struct {
	QuestionOrder int                 `json:"questionOrder"`
	VariationID   uint                `json:"variationId"`
	Statement     string              `json:"statement"`
	ImageURL      string              `json:"imageUrl,omitempty"`
	Alternatives  []model.Alternative `json:"alternatives"`
	Answer        *model.Answer       `json:"answer,omitempty"`
}

type SessionResult struct {
	Session   *model.Session   `json:"session"`
	Questions []ResultQuestion `json:"questions"`
}

// GetResults 仅对已完成的会话开放
func (s *ResultService) GetResults(sessionID string, userID uint) (*SessionResult, error) {
	session, err := s.SessionRepo.FindByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrSessionNotFound
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	if session.Status != model.SessionCompleted {
		return nil, util.ErrSessionNotComplete
	}

	qs, err := s.SessionRepo.ListQuestions(sessionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.SessionRepo.ListAnswers(sessionID)
	if err != nil {
		return nil, err
	}

	byVariation := make(map[uint]*model.Answer, len(answers))
	for i := range answers {
		byVariation[answers[i].VariationID] = &answers[i]
	}

	questions := make([]ResultQuestion, 0, len(qs))
	for _, q := range qs {
		rq := ResultQuestion{
			QuestionOrder: q.QuestionOrder,
			VariationID:   q.VariationID,
			Answer:        byVariation[q.VariationID],
		}
		if q.Variation != nil {
			rq.Statement = q.Variation.Statement
			rq.ImageURL = q.Variation.ImageURL
			rq.Alternatives = q.Variation.Alternatives
		}
		questions = append(questions, rq)
	}

	return &SessionResult{Session: session, Questions: questions}, nil
}
