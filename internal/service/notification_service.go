package service

import (
	"context"
	"encoding/json"
	"medprep_backend/internal/model"
	"medprep_backend/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// EventChannel 实时层（仪表盘推送等）订阅的 redis 频道
const EventChannel = "medprep:events"

// NotificationService 完成事件发布，尽力而为：发布失败只记日志，绝不影响交卷
type NotificationService struct {
	Redis *redis.Client
}

func NewNotificationService(rdb *redis.Client) *NotificationService {
	return &NotificationService{Redis: rdb}
}

type sessionCompletedEvent struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId"`
	UserID      uint   `json:"userId"`
	Score       int    `json:"score"`
	Correct     int    `json:"correct"`
	Total       int    `json:"total"`
	CompletedAt string `json:"completedAt"`
}

func (s *NotificationService) SessionCompleted(session *model.Session) {
	if s.Redis == nil {
		return
	}

	event := sessionCompletedEvent{
		Type:      "session.completed",
		SessionID: session.ID,
		UserID:    session.UserID,
		Total:     session.TotalQuestions,
	}
	if session.Score != nil {
		event.Score = *session.Score
	}
	if session.CorrectAnswers != nil {
		event.Correct = *session.CorrectAnswers
	}
	if session.CompletedAt != nil {
		event.CompletedAt = session.CompletedAt.Format(time.RFC3339)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Log.Warn("failed to encode session event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Redis.Publish(ctx, EventChannel, payload).Err(); err != nil {
		logger.Log.Warn("failed to publish session event",
			zap.String("sessionId", session.ID),
			zap.Error(err),
		)
	}
}
