package service

import (
	"errors"
	"math/rand"
	"medprep_backend/internal/model"
	"medprep_backend/internal/util"
	"medprep_backend/pkg/logger"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	logger.Log = zap.NewNop()
}

func newTestSampler(seed int64) *SamplerService {
	return &SamplerService{rng: rand.New(rand.NewSource(seed))}
}

func variation(id, base uint, varNum, version int, topicID uint) model.QuestionVariation {
	return model.QuestionVariation{
		BaseModel:       model.BaseModel{ID: id},
		BaseQuestionID:  base,
		VariationNumber: varNum,
		Version:         version,
		TopicID:         topicID,
	}
}

func TestDedupeLatest(t *testing.T) {
	pool := []model.QuestionVariation{
		variation(1, 10, 1, 1, 1),
		variation(2, 10, 1, 2, 1), // 同题位更高版本，应顶掉 id=1
		variation(3, 10, 2, 1, 1), // 同底层题目不同变体，属于不同题位
		variation(4, 20, 1, 3, 2),
		variation(5, 20, 1, 1, 2),
	}

	out := dedupeLatest(pool)

	require.Len(t, out, 3)
	ids := make([]uint, len(out))
	for i, v := range out {
		ids[i] = v.ID
	}
	assert.Equal(t, []uint{2, 3, 4}, ids)
}

func TestDedupeLatestEmpty(t *testing.T) {
	assert.Empty(t, dedupeLatest(nil))
}

func TestUniform(t *testing.T) {
	s := newTestSampler(42)

	pool := make([]model.QuestionVariation, 0, 20)
	for i := uint(1); i <= 20; i++ {
		pool = append(pool, variation(i, i, 1, 1, 1))
	}

	ids, err := s.uniform(pool, 15)
	require.NoError(t, err)
	require.Len(t, ids, 15)

	seen := make(map[uint]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		assert.True(t, id >= 1 && id <= 20)
		seen[id] = true
	}
}

func TestUniformInsufficient(t *testing.T) {
	s := newTestSampler(42)

	pool := make([]model.QuestionVariation, 0, 10)
	for i := uint(1); i <= 10; i++ {
		pool = append(pool, variation(i, i, 1, 1, 1))
	}

	_, err := s.uniform(pool, 15)

	var insufficient *util.InsufficientQuestionsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 15, insufficient.Required)
	assert.Equal(t, 10, insufficient.Available)
}

func weightedTopic(id uint, name string, weight float64) model.Topic {
	return model.Topic{
		BaseModel:        model.BaseModel{ID: id},
		Name:             name,
		WeightPercentage: &weight,
	}
}

func TestStratifiedRespectsWeights(t *testing.T) {
	s := newTestSampler(7)

	// 两个主题各 120 道题，权重 60/40，目标 180
	pool := make([]model.QuestionVariation, 0, 240)
	topicOf := make(map[uint]uint)
	var nextID uint = 1
	for _, topicID := range []uint{1, 2} {
		for i := 0; i < 120; i++ {
			v := variation(nextID, nextID, 1, 1, topicID)
			topicOf[v.ID] = topicID
			pool = append(pool, v)
			nextID++
		}
	}
	topics := []model.Topic{
		weightedTopic(1, "Cardiologia", 60),
		weightedTopic(2, "Pneumologia", 40),
	}

	ids, err := s.stratified(pool, topics, 180)
	require.NoError(t, err)
	require.Len(t, ids, 180)

	counts := map[uint]int{}
	seen := map[uint]bool{}
	for _, id := range ids {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
		counts[topicOf[id]]++
	}

	// round(0.6*180)=108, round(0.4*180)=72
	assert.Equal(t, 108, counts[1])
	assert.Equal(t, 72, counts[2])
}

func TestStratifiedBackfillsShortfall(t *testing.T) {
	s := newTestSampler(3)

	// 主题1 权重 50% 但只有 5 道题；缺口从主题2 回填
	pool := make([]model.QuestionVariation, 0, 45)
	var nextID uint = 1
	for i := 0; i < 5; i++ {
		pool = append(pool, variation(nextID, nextID, 1, 1, 1))
		nextID++
	}
	for i := 0; i < 40; i++ {
		pool = append(pool, variation(nextID, nextID, 1, 1, 2))
		nextID++
	}
	topics := []model.Topic{
		weightedTopic(1, "Scarce", 50),
		weightedTopic(2, "Plenty", 50),
	}

	ids, err := s.stratified(pool, topics, 30)
	require.NoError(t, err)
	require.Len(t, ids, 30)

	seen := map[uint]bool{}
	for _, id := range ids {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}

func TestStratifiedBackfillNoDuplicateSlots(t *testing.T) {
	s := newTestSampler(11)

	// 主题池与回填池里存在相同题位的不同记录时不允许重复选中
	pool := []model.QuestionVariation{
		variation(1, 100, 1, 1, 1),
		variation(2, 101, 1, 1, 1),
		variation(3, 102, 1, 1, 2),
		variation(4, 103, 1, 1, 2),
	}
	topics := []model.Topic{weightedTopic(1, "Only", 100)}

	ids, err := s.stratified(pool, topics, 4)
	require.NoError(t, err)
	require.Len(t, ids, 4)

	seen := map[uint]bool{}
	for _, id := range ids {
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestStratifiedInsufficientEvenWithBackfill(t *testing.T) {
	s := newTestSampler(5)

	pool := []model.QuestionVariation{
		variation(1, 1, 1, 1, 1),
		variation(2, 2, 1, 1, 2),
	}
	topics := []model.Topic{weightedTopic(1, "Tiny", 100)}

	_, err := s.stratified(pool, topics, 10)

	var insufficient *util.InsufficientQuestionsError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 10, insufficient.Required)
	assert.Equal(t, 2, insufficient.Available)
}

func TestShuffleIsPermutation(t *testing.T) {
	s := newTestSampler(99)

	vs := make([]model.QuestionVariation, 0, 50)
	for i := uint(1); i <= 50; i++ {
		vs = append(vs, variation(i, i, 1, 1, 1))
	}

	s.shuffle(vs)

	seen := map[uint]bool{}
	for _, v := range vs {
		seen[v.ID] = true
	}
	assert.Len(t, seen, 50)
}
