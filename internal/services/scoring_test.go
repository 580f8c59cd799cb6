package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"live-quiz-backend/internal/services"
)

func TestScoreAnswer(t *testing.T) {
	tests := []struct {
		name    string
		correct bool
		elapsed float64
		want    int
	}{
		{"incorrect is worthless", false, 0.5, 0},
		{"instant", true, 0, 150},
		{"fast tier boundary", true, 2, 150},
		{"just past fast tier", true, 2.001, 100},
		{"medium tier boundary", true, 5, 100},
		{"slow tier", true, 7.5, 50},
		{"slow tier boundary", true, 10, 50},
		{"too slow", true, 10.5, 0},
		{"negative elapsed counts as instant", true, -3, 150},
		{"incorrect and slow", false, 30, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, services.ScoreAnswer(tt.correct, tt.elapsed))
		})
	}
}

func TestScoringService_CustomTiers(t *testing.T) {
	s := services.NewScoringService(
		services.ScoreTier{MaxSeconds: 1, Points: 1000},
		services.ScoreTier{MaxSeconds: 20, Points: 10},
	)

	assert.Equal(t, 1000, s.Score(true, 0.5))
	assert.Equal(t, 10, s.Score(true, 15))
	assert.Equal(t, 0, s.Score(true, 21))
	assert.Equal(t, 0, s.Score(false, 0.5))
}

func TestScoringService_DefaultsMatchScoreAnswer(t *testing.T) {
	s := services.NewScoringService()
	for _, elapsed := range []float64{0, 1.5, 4, 9, 12} {
		assert.Equal(t, services.ScoreAnswer(true, elapsed), s.Score(true, elapsed))
	}
}
