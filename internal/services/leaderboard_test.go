package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-quiz-backend/internal/services"
)

func TestRankLeaderboard_TiesKeepJoinOrder(t *testing.T) {
	// A joined before C, so A has the lower id
	scores := map[string]int64{"1": 100, "2": 150, "3": 100}
	names := map[string]string{"1": "A", "2": "B", "3": "C"}

	board := services.RankLeaderboard(scores, names)

	require.Len(t, board, 3)
	assert.Equal(t, services.LeaderboardEntry{Position: 1, PlayerID: 2, Nickname: "B", Score: 150}, board[0])
	assert.Equal(t, services.LeaderboardEntry{Position: 2, PlayerID: 1, Nickname: "A", Score: 100}, board[1])
	assert.Equal(t, services.LeaderboardEntry{Position: 3, PlayerID: 3, Nickname: "C", Score: 100}, board[2])
}

func TestRankLeaderboard_NumericIDOrder(t *testing.T) {
	// "10" sorts before "9" as a string but joined later
	scores := map[string]int64{"9": 50, "10": 50}
	names := map[string]string{"9": "early", "10": "late"}

	board := services.RankLeaderboard(scores, names)

	require.Len(t, board, 2)
	assert.Equal(t, "early", board[0].Nickname)
	assert.Equal(t, "late", board[1].Nickname)
}

func TestRankLeaderboard_MissingName(t *testing.T) {
	board := services.RankLeaderboard(map[string]int64{"4": 10}, map[string]string{})

	require.Len(t, board, 1)
	assert.Equal(t, "Unknown", board[0].Nickname)
}

func TestRankLeaderboard_SkipsNonPlayerKeys(t *testing.T) {
	board := services.RankLeaderboard(map[string]int64{"x": 10, "2": 5}, map[string]string{"2": "B"})

	require.Len(t, board, 1)
	assert.Equal(t, uint(2), board[0].PlayerID)
}

func TestRankLeaderboard_Empty(t *testing.T) {
	board := services.RankLeaderboard(nil, nil)
	assert.NotNil(t, board)
	assert.Empty(t, board)
}

func TestRankLeaderboard_Deterministic(t *testing.T) {
	scores := map[string]int64{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0}
	first := services.RankLeaderboard(scores, nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, services.RankLeaderboard(scores, nil))
	}
	assert.Equal(t, uint(1), first[0].PlayerID)
	assert.Equal(t, uint(5), first[4].PlayerID)
}
