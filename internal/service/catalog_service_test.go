package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAlternatives(t *testing.T) {
	tests := []struct {
		name    string
		alts    []AlternativeReq
		wantErr bool
	}{
		{
			"两个选项一个正确",
			[]AlternativeReq{{Text: "a", IsCorrect: true}, {Text: "b"}},
			false,
		},
		{
			"五个选项一个正确",
			[]AlternativeReq{{Text: "a"}, {Text: "b"}, {Text: "c", IsCorrect: true}, {Text: "d"}, {Text: "e"}},
			false,
		},
		{
			"只有一个选项",
			[]AlternativeReq{{Text: "a", IsCorrect: true}},
			true,
		},
		{
			"没有正确选项",
			[]AlternativeReq{{Text: "a"}, {Text: "b"}},
			true,
		},
		{
			"多个正确选项",
			[]AlternativeReq{{Text: "a", IsCorrect: true}, {Text: "b", IsCorrect: true}},
			true,
		},
		{
			"空列表",
			nil,
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAlternatives(tt.alts)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTopicWeightValidation(t *testing.T) {
	s := &CatalogService{}

	invalid := []float64{0, -10, 100.5, 200}
	for _, w := range invalid {
		w := w
		_, err := s.CreateTopic(TopicReq{SpecialtyID: 1, Name: "t", WeightPercentage: &w})
		require.Error(t, err, "weight %v should be rejected", w)

		_, err = s.UpdateTopicWeight(1, &w)
		require.Error(t, err, "weight %v should be rejected", w)
	}
}
