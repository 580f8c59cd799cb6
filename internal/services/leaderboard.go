package services

import (
	"sort"
	"strconv"
)

const unknownNickname = "Unknown"

type LeaderboardEntry struct {
	Position int    `json:"position"`
	PlayerID uint   `json:"player_id"`
	Nickname string `json:"nickname"`
	Score    int64  `json:"score"`
}

// RankLeaderboard orders players by score, highest first. Equal scores
// keep join order, which is ascending player ID since the catalog hands
// out IDs as players join. Keys that are not player IDs are skipped.
func RankLeaderboard(scores map[string]int64, names map[string]string) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(scores))
	for key, score := range scores {
		id, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			continue
		}
		name, ok := names[key]
		if !ok || name == "" {
			name = unknownNickname
		}
		entries = append(entries, LeaderboardEntry{
			PlayerID: uint(id),
			Nickname: name,
			Score:    score,
		})
	}

	sort.Slice(entries, func(a, b int) bool {
		if entries[a].Score != entries[b].Score {
			return entries[a].Score > entries[b].Score
		}
		return entries[a].PlayerID < entries[b].PlayerID
	})

	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

// parseScores converts the raw scores hash. Unparseable values count as 0.
func parseScores(raw map[string]string) map[string]int64 {
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, _ := strconv.ParseInt(v, 10, 64)
		out[k] = n
	}
	return out
}
