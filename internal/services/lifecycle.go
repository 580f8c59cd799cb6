package services

import "live-quiz-backend/internal/models"

// transitions lists every allowed status change. PREPARED -> FINISHED
// aborts a session that never ran.
var transitions = map[string][]string{
	models.SessionStatusPrepared: {models.SessionStatusActive, models.SessionStatusFinished},
	models.SessionStatusActive:   {models.SessionStatusFinished},
}

// CanTransition reports whether a session may move from one status to
// another. Staying in place is not a transition.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func validStatus(status string) bool {
	switch status {
	case models.SessionStatusPrepared, models.SessionStatusActive, models.SessionStatusFinished:
		return true
	}
	return false
}
