package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound     = errors.New("用户不存在")
	ErrEmailRegistered  = errors.New("该邮箱已被注册")
	ErrPermissionDenied = errors.New("permission denied")

	ErrPackageNotFound      = errors.New("package not found")
	ErrPurchaseNotFound     = errors.New("purchase not found")
	ErrPurchaseNotActive    = errors.New("purchase not active")
	ErrPurchaseExhausted    = errors.New("purchase has no sessions left")
	ErrPurchaseConflict     = errors.New("concurrent session start exhausted the purchase")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionFinished      = errors.New("session already finished")
	ErrSessionNotComplete   = errors.New("session not completed yet")
	ErrQuestionNotInSession = errors.New("question does not belong to this session")
	ErrVariationNotFound    = errors.New("question variation not found")
)

// InsufficientQuestionsError 题库可用题量不足，携带需要/可用数量方便上层提示
type InsufficientQuestionsError struct {
	Required  int
	Available int
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("insufficient questions: required %d, available %d", e.Required, e.Available)
}
