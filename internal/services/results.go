package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"live-quiz-backend/internal/models"
)

// encodeAward is the claim value stored when a submission is scored.
func encodeAward(option, points int) string {
	return fmt.Sprintf("%d:%d", option, points)
}

func decodeAward(raw string) (option, points int, ok bool) {
	o, p, found := strings.Cut(raw, ":")
	if !found {
		return 0, 0, false
	}
	option, err := strconv.Atoi(o)
	if err != nil {
		return 0, 0, false
	}
	points, err = strconv.Atoi(p)
	if err != nil {
		return 0, 0, false
	}
	return option, points, true
}

// flushResults copies a finished game's scores and answers from the state
// store into the catalog. Each answer row describes the scored submission,
// so its option, correctness and points agree; the player's last choice
// is kept alongside.
func (s *SessionService) flushResults(ctx context.Context, pin string, sessionID uint, questions []models.Question) error {
	subkeys := make([]string, 0, 1+2*len(questions))
	subkeys = append(subkeys, subkeyScores)
	for i := range questions {
		subkeys = append(subkeys, answersKey(int64(i)), awardedKey(int64(i)))
	}

	all, err := s.store.HashGetAllMany(ctx, pin, subkeys...)
	if err != nil {
		return err
	}

	results := GameResults{FinalScores: make(map[uint]int)}
	for key, score := range parseScores(all[0]) {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		results.FinalScores[uint(id)] = int(score)
	}

	for i, q := range questions {
		answers, awarded := all[1+2*i], all[2+2*i]
		for key, raw := range answers {
			id, err := strconv.ParseUint(key, 10, 64)
			if err != nil {
				continue
			}
			last, err := strconv.Atoi(raw)
			if err != nil {
				continue
			}
			option, points, ok := decodeAward(awarded[key])
			if !ok {
				// answer stored but never scored
				option, points = last, 0
			}
			results.Answers = append(results.Answers, models.Answer{
				SessionID:       sessionID,
				PlayerID:        uint(id),
				QuestionIndex:   i,
				OptionIndex:     option,
				LastOptionIndex: last,
				IsCorrect:       option == q.CorrectIndex,
				Points:          points,
			})
		}
	}

	return s.catalog.SaveResults(ctx, sessionID, results)
}
