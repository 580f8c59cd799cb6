package services

// ScoreTier awards Points to a correct answer that arrives within
// MaxSeconds of the question going out.
type ScoreTier struct {
	MaxSeconds float64
	Points     int
}

// DefaultScoreTiers are checked in order. An answer slower than the last
// tier is accepted but scores nothing.
var DefaultScoreTiers = []ScoreTier{
	{MaxSeconds: 2, Points: 150},
	{MaxSeconds: 5, Points: 100},
	{MaxSeconds: 10, Points: 50},
}

type ScoringService struct {
	tiers []ScoreTier
}

// NewScoringService scores with tiers, or DefaultScoreTiers when none are
// given. Tiers must be ordered by MaxSeconds.
func NewScoringService(tiers ...ScoreTier) *ScoringService {
	if len(tiers) == 0 {
		tiers = DefaultScoreTiers
	}
	return &ScoringService{tiers: tiers}
}

// Score returns the points for one answer given how long after the
// question went out it arrived. Negative elapsed times (clock skew) count
// as instant.
func (s *ScoringService) Score(isCorrect bool, elapsedSeconds float64) int {
	if !isCorrect {
		return 0
	}
	if elapsedSeconds < 0 {
		elapsedSeconds = 0
	}
	for _, tier := range s.tiers {
		if elapsedSeconds <= tier.MaxSeconds {
			return tier.Points
		}
	}
	return 0
}

var defaultScoring = NewScoringService()

// ScoreAnswer scores with DefaultScoreTiers.
func ScoreAnswer(isCorrect bool, elapsedSeconds float64) int {
	return defaultScoring.Score(isCorrect, elapsedSeconds)
}
