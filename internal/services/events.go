package services

import "live-quiz-backend/internal/ws"

// Inbound event types.
const (
	EventJoinGame     = "join_game"
	EventStartGame    = "start_game"
	EventNextQuestion = "next_question"
	EventSubmitAnswer = "submit_answer"
)

// Outbound event types.
const (
	EventError             = "error"
	EventPlayerJoined      = "player_joined"
	EventJoinedSuccess     = "joined_success"
	EventGameStarted       = "game_started"
	EventNewQuestion       = "new_question"
	EventAnswerResult      = "answer_result"
	EventUpdateLeaderboard = "update_leaderboard"
	EventGameOver          = "game_over"
)

// Participant roles. Host and display connections follow the game but
// never score.
const (
	RolePlayer  = "player"
	RoleHost    = "host"
	RoleDisplay = "display"
)

// Nicknames the original host screens join with.
const (
	legacyHostNickname    = "ADMIN"
	legacyDisplayNickname = "HOST_DISPLAY"
)

// Publisher delivers outbound events. Subscribe adds a connection to a
// session's broadcast group; RoomSize counts the group.
type Publisher interface {
	Subscribe(pin, connID string)
	Send(connID string, msg ws.WSMessage)
	Broadcast(pin string, msg ws.WSMessage)
	RoomSize(pin string) int
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type PlayerJoinedPayload struct {
	Nickname string `json:"nickname"`
	ID       uint   `json:"id"`
}

type JoinedPayload struct {
	GameID   uint   `json:"game_id"`
	PlayerID uint   `json:"player_id,omitempty"`
	Role     string `json:"role"`
}

// QuestionPayload never carries the correct option.
type QuestionPayload struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Index   int      `json:"index"`
	Total   int      `json:"total"`
}

type AnswerResultPayload struct {
	Correct     bool  `json:"correct"`
	Score       int64 `json:"score"`
	PointsAdded int   `json:"points_added"`
}

type GameOverPayload struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

func message(eventType string, data interface{}) ws.WSMessage {
	return ws.WSMessage{Type: eventType, Data: data}
}

// resolveRole maps an explicit role, or one of the legacy host nicknames,
// to a participant role.
func resolveRole(role, nickname string) string {
	switch role {
	case RoleHost, RoleDisplay:
		return role
	}
	switch nickname {
	case legacyHostNickname:
		return RoleHost
	case legacyDisplayNickname:
		return RoleDisplay
	}
	return RolePlayer
}
