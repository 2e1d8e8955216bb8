package service

import (
	"medprep_backend/internal/model"
	"medprep_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
)

func alternative(text string, correct bool, order int) model.Alternative {
	return model.Alternative{Text: text, IsCorrect: correct, Order: order}
}

func TestEvaluateAnswer(t *testing.T) {
	alternatives := []model.Alternative{
		alternative("Amoxicilina", false, 0),
		alternative("Azitromicina", true, 1),
		alternative("Ceftriaxona", false, 2),
		alternative("Vancomicina", false, 3),
	}

	tests := []struct {
		name     string
		selected string
		want     bool
	}{
		{"正确选项原文", "Azitromicina", true},
		{"正确选项字母标签", "B", true},
		{"错误选项原文", "Amoxicilina", false},
		{"错误选项字母标签", "A", false},
		{"不存在的值", "Penicilina", false},
		{"空提交", "", false},
		{"字母大小写敏感", "b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluateAnswer(alternatives, tt.selected))
		})
	}
}

func TestEvaluateAnswerNoCorrectAlternative(t *testing.T) {
	// 数据异常：没有正确选项时永远判错
	alternatives := []model.Alternative{
		alternative("A1", false, 0),
		alternative("A2", false, 1),
	}
	assert.False(t, evaluateAnswer(alternatives, "A1"))
	assert.False(t, evaluateAnswer(alternatives, "A"))
}

func TestEvaluateAnswerLetterFollowsOrder(t *testing.T) {
	// 字母标签由 display_order 派生，与切片位置无关
	alternatives := []model.Alternative{
		alternative("Last", false, 2),
		alternative("First", true, 0),
	}
	assert.True(t, evaluateAnswer(alternatives, "A"))
	assert.True(t, evaluateAnswer(alternatives, "First"))
	assert.False(t, evaluateAnswer(alternatives, "C"))
}

func TestComputeScore(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		total   int
		want    int
	}{
		{"满分", 15, 15, 100},
		{"零分", 0, 15, 0},
		{"四舍五入向上", 36, 45, 80},
		{"四舍五入边界", 1, 3, 33},
		{"四舍五入进位", 2, 3, 67},
		{"total为零不除零", 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, computeScore(tt.correct, tt.total))
		})
	}
}

func TestValidateEntitlement(t *testing.T) {
	tests := []struct {
		name     string
		purchase model.Purchase
		wantErr  error
	}{
		{
			"激活且有余量",
			model.Purchase{Status: model.PurchaseActive, SessionsTotal: 10, SessionsUsed: 3},
			nil,
		},
		{
			"待支付",
			model.Purchase{Status: model.PurchasePending, SessionsTotal: 10},
			util.ErrPurchaseNotActive,
		},
		{
			"已过期",
			model.Purchase{Status: model.PurchaseExpired, SessionsTotal: 10},
			util.ErrPurchaseNotActive,
		},
		{
			"已取消",
			model.Purchase{Status: model.PurchaseCancelled, SessionsTotal: 10},
			util.ErrPurchaseNotActive,
		},
		{
			"配额用尽",
			model.Purchase{Status: model.PurchaseActive, SessionsTotal: 10, SessionsUsed: 10},
			util.ErrPurchaseExhausted,
		},
		{
			"最后一次可用",
			model.Purchase{Status: model.PurchaseActive, SessionsTotal: 10, SessionsUsed: 9},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEntitlement(&tt.purchase)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAlternativeLetter(t *testing.T) {
	for i, want := range []string{"A", "B", "C", "D", "E"} {
		a := model.Alternative{Order: i}
		assert.Equal(t, want, a.Letter())
	}
}

func TestSessionIsTerminal(t *testing.T) {
	assert.False(t, (&model.Session{Status: model.SessionInProgress}).IsTerminal())
	assert.True(t, (&model.Session{Status: model.SessionCompleted}).IsTerminal())
	assert.True(t, (&model.Session{Status: model.SessionAbandoned}).IsTerminal())
}
