package service

import (
	"math"
	"math/rand"
	"medprep_backend/internal/model"
	"medprep_backend/internal/repository"
	"medprep_backend/internal/util"
	"medprep_backend/pkg/logger"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SamplerService 分层抽题器：按主题权重配额从题库抽取固定数量的题目版本，
// 没有权重配置时退化为均匀抽样。返回的列表保证：
//   - 长度恰好等于 targetCount，不足时返回 InsufficientQuestionsError
//   - 同一题位 (base_question_id, variation_number) 不重复
//   - 只含各题位的最高版本
type SamplerService struct {
	QuestionRepo *repository.QuestionRepository
	TopicRepo    *repository.TopicRepository

	mu  sync.Mutex // math/rand.Rand 非并发安全
	rng *rand.Rand
}

func NewSamplerService(questionRepo *repository.QuestionRepository, topicRepo *repository.TopicRepository) *SamplerService {
	return &SamplerService{
		QuestionRepo: questionRepo,
		TopicRepo:    topicRepo,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SelectQuestions 抽取 targetCount 道题，weighted 仅对 mock_exam 套餐为 true
func (s *SamplerService) SelectQuestions(targetCount int, weighted bool) ([]uint, error) {
	raw, err := s.QuestionRepo.ListEligible(0)
	if err != nil {
		return nil, err
	}
	pool := dedupeLatest(raw)

	if !weighted {
		return s.uniform(pool, targetCount)
	}

	topics, err := s.TopicRepo.ListWeighted()
	if err != nil {
		return nil, err
	}
	if len(topics) == 0 {
		// 没有任何主题配置权重，按均匀抽样处理
		return s.uniform(pool, targetCount)
	}

	return s.stratified(pool, topics, targetCount)
}

// uniform 均匀抽样：洗牌后取前 targetCount 个
func (s *SamplerService) uniform(pool []model.QuestionVariation, targetCount int) ([]uint, error) {
	if len(pool) < targetCount {
		return nil, &util.InsufficientQuestionsError{Required: targetCount, Available: len(pool)}
	}

	shuffled := make([]model.QuestionVariation, len(pool))
	copy(shuffled, pool)
	s.shuffle(shuffled)

	ids := make([]uint, targetCount)
	for i := 0; i < targetCount; i++ {
		ids[i] = shuffled[i].ID
	}
	return ids, nil
}

// stratified 加权抽样：逐主题按配额抽取，配额不足记录告警不中断，
// 缺口从全池未选中的题位回填，最后整体洗牌避免主题分组在出题顺序中可见
func (s *SamplerService) stratified(pool []model.QuestionVariation, topics []model.Topic, targetCount int) ([]uint, error) {
	byTopic := make(map[uint][]model.QuestionVariation)
	for _, v := range pool {
		byTopic[v.TopicID] = append(byTopic[v.TopicID], v)
	}

	selected := make([]model.QuestionVariation, 0, targetCount)
	chosen := make(map[model.SlotKey]bool, targetCount)

	for _, t := range topics {
		if t.WeightPercentage == nil {
			continue
		}
		quota := int(math.Round(*t.WeightPercentage / 100 * float64(targetCount)))
		if quota <= 0 {
			continue
		}

		candidates := make([]model.QuestionVariation, len(byTopic[t.ID]))
		copy(candidates, byTopic[t.ID])
		s.shuffle(candidates)

		taken := 0
		for _, v := range candidates {
			if taken >= quota {
				break
			}
			key := v.SlotKey()
			if chosen[key] {
				continue
			}
			chosen[key] = true
			selected = append(selected, v)
			taken++
		}

		if taken < quota {
			logger.Log.Warn("topic cannot fill its sampling quota",
				zap.Uint("topicId", t.ID),
				zap.String("topic", t.Name),
				zap.Int("quota", quota),
				zap.Int("taken", taken),
			)
		}
	}

	// 回填：只从尚未选中的题位里补，保证合并结果无重复
	if len(selected) < targetCount {
		rest := make([]model.QuestionVariation, 0, len(pool)-len(selected))
		for _, v := range pool {
			if !chosen[v.SlotKey()] {
				rest = append(rest, v)
			}
		}
		s.shuffle(rest)

		need := targetCount - len(selected)
		if need > len(rest) {
			need = len(rest)
		}
		selected = append(selected, rest[:need]...)
	}

	if len(selected) < targetCount {
		return nil, &util.InsufficientQuestionsError{Required: targetCount, Available: len(pool)}
	}

	s.shuffle(selected)
	selected = selected[:targetCount]

	ids := make([]uint, targetCount)
	for i, v := range selected {
		ids[i] = v.ID
	}
	return ids, nil
}

// shuffle Fisher–Yates 均匀洗牌（rand.Shuffle 实现），
// 不允许用随机比较器排序代替——那种写法分布有偏
func (s *SamplerService) shuffle(vs []model.QuestionVariation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(vs), func(i, j int) {
		vs[i], vs[j] = vs[j], vs[i]
	})
}

// dedupeLatest 同一题位只保留最高 version 的记录，输出按ID排序保证确定性
func dedupeLatest(pool []model.QuestionVariation) []model.QuestionVariation {
	latest := make(map[model.SlotKey]model.QuestionVariation, len(pool))
	for _, v := range pool {
		key := v.SlotKey()
		if cur, ok := latest[key]; !ok || v.Version > cur.Version {
			latest[key] = v
		}
	}

	out := make([]model.QuestionVariation, 0, len(latest))
	for _, v := range latest {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
