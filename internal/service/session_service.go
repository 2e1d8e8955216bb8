package service

import (
	"errors"
	"math"
	"medprep_backend/internal/model"
	"medprep_backend/internal/repository"
	"medprep_backend/internal/util"
	"medprep_backend/pkg/logger"
	"medprep_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionService 答题会话生命周期：开考（配额校验+抽题+原子落库）、
// 作答（upsert）、交卷（幂等计分）
type SessionService struct {
	SessionRepo  *repository.SessionRepository
	PurchaseRepo *repository.PurchaseRepository
	PackageRepo  *repository.PackageRepository
	QuestionRepo *repository.QuestionRepository
	Sampler      *SamplerService
	Notifier     *NotificationService
	Cache        *CacheService
	DB           *gorm.DB
}

func NewSessionService(
	sessionRepo *repository.SessionRepository,
	purchaseRepo *repository.PurchaseRepository,
	packageRepo *repository.PackageRepository,
	questionRepo *repository.QuestionRepository,
	sampler *SamplerService,
	notifier *NotificationService,
	cache *CacheService,
	db *gorm.DB,
) *SessionService {
	return &SessionService{
		SessionRepo:  sessionRepo,
		PurchaseRepo: purchaseRepo,
		PackageRepo:  packageRepo,
		QuestionRepo: questionRepo,
		Sampler:      sampler,
		Notifier:     notifier,
		Cache:        cache,
		DB:           db,
	}
}

// Start 针对某次购买开始一场答题
// 会话与题单的写入、sessions_used 的递增在同一事务内提交，
// 事务内对 Purchase 行加 FOR UPDATE 锁，序列化同一购买上的并发开考，
// 配额检查与递增之间不存在窗口
func (s *SessionService) Start(userID, purchaseID uint) (*model.Session, error) {
	purchase, err := s.PurchaseRepo.FindByID(purchaseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPurchaseNotFound
		}
		return nil, err
	}
	if purchase.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	if err := validateEntitlement(purchase); err != nil {
		return nil, err
	}

	pkg := purchase.Package
	if pkg == nil {
		if pkg, err = s.PackageRepo.FindByID(purchase.PackageID); err != nil {
			return nil, err
		}
	}

	// 抽题只读题库，放在写事务外，缩短持锁时间
	weighted := pkg.Kind == model.PackageMockExam
	variationIDs, err := s.Sampler.SelectQuestions(pkg.TotalQuestions, weighted)
	if err != nil {
		return nil, err
	}

	session := &model.Session{
		UserID:         userID,
		PurchaseID:     purchaseID,
		Status:         model.SessionInProgress,
		TotalQuestions: pkg.TotalQuestions,
		StartedAt:      time.Now(),
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		locked, err := s.PurchaseRepo.FindForUpdate(tx, purchaseID)
		if err != nil {
			return err
		}
		// 锁内复检：并发请求可能在我们进入事务前耗尽配额
		if err := validateEntitlement(locked); err != nil {
			return err
		}

		if err := tx.Create(session).Error; err != nil {
			return err
		}

		questions := make([]model.SessionQuestion, len(variationIDs))
		for i, id := range variationIDs {
			questions[i] = model.SessionQuestion{
				SessionID:     session.ID,
				VariationID:   id,
				QuestionOrder: i + 1,
			}
		}
		if err := tx.Create(&questions).Error; err != nil {
			return err
		}

		ok, err := s.PurchaseRepo.ConsumeSession(tx, purchaseID)
		if err != nil {
			return err
		}
		if !ok {
			// 行锁下不应到达；守卫条件兜底防止 sessions_used 越界
			return util.ErrPurchaseConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.SessionsStarted.WithLabelValues(string(pkg.Kind)).Inc()
	logger.Log.Info("session started",
		zap.String("sessionId", session.ID),
		zap.Uint("userId", userID),
		zap.Uint("purchaseId", purchaseID),
		zap.Int("questions", session.TotalQuestions),
	)

	if s.Cache != nil {
		go s.Cache.InvalidateUserProgress(userID)
	}
	return session, nil
}

// Answer 作答，同一题重复提交走 upsert 覆盖，返回本次判定结果
func (s *SessionService) Answer(sessionID string, userID uint, variationID uint, selectedAnswer string) (bool, error) {
	session, err := s.findOwned(sessionID, userID)
	if err != nil {
		return false, err
	}
	if session.IsTerminal() {
		// 终态会话拒绝写入，不做静默接受
		return false, util.ErrSessionFinished
	}

	inSession, err := s.SessionRepo.HasQuestion(sessionID, variationID)
	if err != nil {
		return false, err
	}
	if !inSession {
		return false, util.ErrQuestionNotInSession
	}

	variation, err := s.QuestionRepo.FindByIDWithAlternatives(variationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, util.ErrVariationNotFound
		}
		return false, err
	}

	isCorrect := evaluateAnswer(variation.Alternatives, selectedAnswer)

	answer := &model.Answer{
		SessionID:      sessionID,
		VariationID:    variationID,
		SelectedAnswer: selectedAnswer,
		IsCorrect:      isCorrect,
		AnsweredAt:     time.Now(),
	}
	if err := s.SessionRepo.UpsertAnswer(answer); err != nil {
		return false, err
	}

	if s.Cache != nil {
		go s.Cache.InvalidateUserProgress(userID)
	}
	return isCorrect, nil
}

// Complete 交卷计分。已完成的会话直接返回落库结果，重复调用不会重算漂移
func (s *SessionService) Complete(sessionID string, userID uint) (*model.Session, error) {
	session, err := s.findOwned(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionCompleted {
		return session, nil
	}
	if session.Status == model.SessionAbandoned {
		return nil, util.ErrSessionFinished
	}

	correct, err := s.SessionRepo.CountCorrectAnswers(sessionID)
	if err != nil {
		return nil, err
	}
	score := computeScore(int(correct), session.TotalQuestions)
	now := time.Now()
	timeSpent := int(now.Sub(session.StartedAt).Seconds())

	updated, err := s.SessionRepo.Complete(sessionID, int(correct), score, timeSpent, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		// 并发交卷被抢先，读已提交的结果保持幂等
		return s.SessionRepo.FindByID(sessionID)
	}

	correctInt := int(correct)
	session.Status = model.SessionCompleted
	session.CorrectAnswers = &correctInt
	session.Score = &score
	session.CompletedAt = &now
	session.TimeSpentSecs = &timeSpent

	monitoring.SessionsCompleted.Inc()
	logger.Log.Info("session completed",
		zap.String("sessionId", session.ID),
		zap.Int("correct", correctInt),
		zap.Int("score", score),
	)

	// 通知与缓存失效都是尽力而为，失败不影响交卷
	if s.Notifier != nil {
		go s.Notifier.SessionCompleted(session)
	}
	if s.Cache != nil {
		go s.Cache.InvalidateUserProgress(userID)
	}
	return session, nil
}

// AlternativeView 答题中的选项视图，不暴露正确答案
type AlternativeView struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// SessionQuestionView 答题中的题目视图
type SessionQuestionView struct {
	QuestionOrder int               `json:"questionOrder"`
	VariationID   uint              `json:"variationId"`
	Statement     string            `json:"statement"`
	ImageURL      string            `json:"imageUrl,omitempty"`
	Alternatives  []AlternativeView `json:"alternatives"`
}

// GetQuestions 返回会话的固定题单（作答视图，隐藏 is_correct）
func (s *SessionService) GetQuestions(sessionID string, userID uint) (*model.Session, []SessionQuestionView, error) {
	session, err := s.findOwned(sessionID, userID)
	if err != nil {
		return nil, nil, err
	}

	qs, err := s.SessionRepo.ListQuestions(sessionID)
	if err != nil {
		return nil, nil, err
	}

	views := make([]SessionQuestionView, 0, len(qs))
	for _, q := range qs {
		if q.Variation == nil {
			continue
		}
		view := SessionQuestionView{
			QuestionOrder: q.QuestionOrder,
			VariationID:   q.VariationID,
			Statement:     q.Variation.Statement,
			ImageURL:      q.Variation.ImageURL,
		}
		for _, a := range q.Variation.Alternatives {
			view.Alternatives = append(view.Alternatives, AlternativeView{Letter: a.Letter(), Text: a.Text})
		}
		views = append(views, view)
	}
	return session, views, nil
}

// ListSessions 用户的历史会话
func (s *SessionService) ListSessions(userID uint, page, limit int) ([]model.Session, int64, error) {
	return s.SessionRepo.ListByUser(userID, page, limit)
}

func (s *SessionService) findOwned(sessionID string, userID uint) (*model.Session, error) {
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
	return session, nil
}

// validateEntitlement 购买是否允许开始新会话
func validateEntitlement(p *model.Purchase) error {
	if p.Status != model.PurchaseActive {
		return util.ErrPurchaseNotActive
	}
	if p.Remaining() <= 0 {
		return util.ErrPurchaseExhausted
	}
	return nil
}

// evaluateAnswer 判题：提交值等于正确选项的原文，或等于其字母标签（'A'+order）
// 两种匹配并存沿用线上行为；若选项顺序在出题后被修改，两条路径可能分歧，见测试
func evaluateAnswer(alternatives []model.Alternative, selected string) bool {
	for _, a := range alternatives {
		if !a.IsCorrect {
			continue
		}
		return selected == a.Text || selected == a.Letter()
	}
	return false
}

// computeScore 0-100 四舍五入
func computeScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
