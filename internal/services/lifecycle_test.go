package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"live-quiz-backend/internal/models"
	"live-quiz-backend/internal/services"
)

func TestCanTransition(t *testing.T) {
	const (
		prepared = models.SessionStatusPrepared
		active   = models.SessionStatusActive
		finished = models.SessionStatusFinished
	)

	tests := []struct {
		from, to string
		want     bool
	}{
		{prepared, active, true},
		{prepared, finished, true},
		{active, finished, true},
		{active, prepared, false},
		{finished, active, false},
		{finished, prepared, false},
		{prepared, prepared, false},
		{active, active, false},
		{finished, finished, false},
		{"", active, false},
		{prepared, "PAUSED", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, services.CanTransition(tt.from, tt.to))
		})
	}
}
