package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "live-quiz-backend/internal/errors"
	"live-quiz-backend/internal/models"
	"live-quiz-backend/internal/state"
)

const defaultSessionTitle = "Untitled Game"

// Fields of the main state hash.
const (
	fieldPin       = "pin"
	fieldSessionID = "session_id"
	fieldIndex     = "current_question_index"
	fieldStartTime = "question_start_time"
	fieldActive    = "is_active"
	fieldFinished  = "finished"
)

// Companion hashes.
const (
	subkeyPlayers   = "players"
	subkeyScores    = "scores"
	subkeyQuestions = "correct"
)

func answersKey(index int64) string { return fmt.Sprintf("answers:%d", index) }
func awardedKey(index int64) string { return fmt.Sprintf("awarded:%d", index) }

// cachedQuestion is the per-question data a submission needs, kept in the
// state store so answers never touch the catalog on the hot path.
type cachedQuestion struct {
	Correct int `json:"correct"`
	Options int `json:"options"`
}

// SessionService runs live games. It holds no locks of its own: every
// ordering decision is made by an atomic state store operation.
type SessionService struct {
	catalog   *CatalogService
	store     state.Store
	publisher Publisher
	scoring   *ScoringService
	log       *zap.Logger
	pinLength int
	now       func() time.Time
}

func NewSessionService(catalog *CatalogService, store state.Store, publisher Publisher, log *zap.Logger, pinLength int) *SessionService {
	return &SessionService{
		catalog:   catalog,
		store:     store,
		publisher: publisher,
		scoring:   NewScoringService(),
		log:       log,
		pinLength: pinLength,
		now:       time.Now,
	}
}

// SetClock replaces the time source used for question timing.
func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

type JoinResult struct {
	SessionID uint   `json:"session_id"`
	PlayerID  uint   `json:"player_id,omitempty"`
	Role      string `json:"role"`
}

// GameState is a point-in-time view of one session for the admin screens.
type GameState struct {
	SessionID            uint               `json:"session_id"`
	Pin                  string             `json:"pin"`
	Title                string             `json:"title"`
	Status               string             `json:"status"`
	Live                 bool               `json:"live"`
	IsActive             bool               `json:"is_active"`
	CurrentQuestionIndex int64              `json:"current_question_index"`
	TotalQuestions       int                `json:"total_questions"`
	PlayerCount          int                `json:"player_count"`
	Connected            int                `json:"connected"`
	Leaderboard          []LeaderboardEntry `json:"leaderboard"`
}

func (s *SessionService) CreateSession(ctx context.Context, title string) (*models.Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultSessionTitle
	}
	if len(title) > 100 {
		return nil, apperrors.NewValidationError("title", "must be at most 100 characters")
	}

	session, err := s.catalog.CreateSession(ctx, title, s.pinLength)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, session.Pin, initialState(session, false)); err != nil {
		return nil, s.storeError(session.Pin, err)
	}

	s.log.Info("session created", zap.Uint("session_id", session.ID), zap.String("pin", session.Pin))
	return session, nil
}

func initialState(session *models.Session, active bool) map[string]string {
	isActive := "0"
	if active {
		isActive = "1"
	}
	return map[string]string{
		fieldPin:       session.Pin,
		fieldSessionID: strconv.FormatUint(uint64(session.ID), 10),
		fieldIndex:     "-1",
		fieldActive:    isActive,
	}
}

func (s *SessionService) GetSession(ctx context.Context, sessionID uint) (*models.Session, error) {
	return s.catalog.GetSession(ctx, sessionID)
}

func (s *SessionService) ListSessions(ctx context.Context) ([]models.Session, error) {
	return s.catalog.ListSessions(ctx)
}

// ListPlayers returns a session's players ranked by final score. Scores
// are written when the game ends.
func (s *SessionService) ListPlayers(ctx context.Context, sessionID uint) ([]models.Player, error) {
	if _, err := s.catalog.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.catalog.ListPlayers(ctx, sessionID)
}

func (s *SessionService) ListQuestions(ctx context.Context, sessionID uint) ([]models.Question, error) {
	if _, err := s.catalog.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.catalog.GetQuestionsOrdered(ctx, sessionID)
}

func (s *SessionService) AddQuestion(ctx context.Context, sessionID uint, text string, options []string, correctIndex int) (*models.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("text", "must not be empty")
	}
	if len(text) > 200 {
		return nil, apperrors.NewValidationError("text", "must be at most 200 characters")
	}
	if len(options) < 2 {
		return nil, apperrors.NewValidationError("options", "at least two options are required")
	}
	for _, o := range options {
		if strings.TrimSpace(o) == "" {
			return nil, apperrors.NewValidationError("options", "options must not be empty")
		}
	}
	if correctIndex < 0 || correctIndex >= len(options) {
		return nil, apperrors.NewValidationError("correct_index", "must point at one of the options")
	}

	session, err := s.catalog.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusFinished {
		return nil, apperrors.NewSessionClosedError(sessionID)
	}
	return s.catalog.AddQuestion(ctx, sessionID, text, options, correctIndex)
}

// Join adds a connection to a game. Players get a durable record and a
// zero score; host and display connections only follow the broadcasts.
func (s *SessionService) Join(ctx context.Context, connID, pin, nickname, role string) (*JoinResult, error) {
	if pin == "" {
		return nil, apperrors.NewMissingSessionPinError()
	}
	nickname = strings.TrimSpace(nickname)
	role = resolveRole(role, nickname)

	fields, err := s.store.GetAll(ctx, pin)
	if err != nil {
		return nil, s.storeError(pin, err)
	}
	sessionID := parseID(fields[fieldSessionID])
	result := &JoinResult{SessionID: sessionID, Role: role}

	if role != RolePlayer {
		s.publisher.Subscribe(pin, connID)
		s.publisher.Send(connID, message(EventJoinedSuccess, JoinedPayload{GameID: sessionID, Role: role}))
		s.syncLateJoiner(ctx, connID, pin, sessionID)
		return result, nil
	}

	if fields[fieldActive] != "1" {
		return nil, apperrors.NewSessionNotActiveError(pin)
	}
	if nickname == "" {
		return nil, apperrors.NewValidationError("nickname", "must not be empty")
	}
	if len(nickname) > 100 {
		return nil, apperrors.NewValidationError("nickname", "must be at most 100 characters")
	}

	player, err := s.catalog.CreatePlayer(ctx, sessionID, nickname)
	if err != nil {
		return nil, err
	}
	id := strconv.FormatUint(uint64(player.ID), 10)
	err = s.store.HashSet(ctx, pin, subkeyPlayers, map[string]string{id: nickname})
	if err == nil {
		err = s.store.HashSet(ctx, pin, subkeyScores, map[string]string{id: "0"})
	}
	if err != nil {
		s.discardPlayer(ctx, pin, player.ID)
		return nil, s.storeError(pin, err)
	}

	s.publisher.Subscribe(pin, connID)
	s.publisher.Broadcast(pin, message(EventPlayerJoined, PlayerJoinedPayload{Nickname: nickname, ID: player.ID}))
	s.publisher.Send(connID, message(EventJoinedSuccess, JoinedPayload{
		GameID:   sessionID,
		PlayerID: player.ID,
		Role:     role,
	}))
	s.syncLateJoiner(ctx, connID, pin, sessionID)

	s.log.Info("player joined",
		zap.String("pin", pin),
		zap.Uint("player_id", player.ID),
		zap.String("nickname", nickname),
	)
	result.PlayerID = player.ID
	return result, nil
}

// discardPlayer removes a player whose live state could not be written, so
// the catalog holds no player the game never saw.
func (s *SessionService) discardPlayer(ctx context.Context, pin string, playerID uint) {
	if err := s.catalog.DeletePlayer(ctx, playerID); err != nil {
		s.log.Warn("orphaned player left in catalog",
			zap.String("pin", pin),
			zap.Uint("player_id", playerID),
			zap.Error(err),
		)
	}
	id := strconv.FormatUint(uint64(playerID), 10)
	if err := s.store.HashDelete(ctx, pin, subkeyPlayers, id); err != nil && !errors.Is(err, state.ErrNotFound) {
		s.log.Warn("failed to clear player state", zap.String("pin", pin), zap.Error(err))
	}
}

// syncLateJoiner privately sends the question in flight, if any. The index
// is read after subscribing, so an advance racing the join reaches the
// caller either here or through the broadcast.
func (s *SessionService) syncLateJoiner(ctx context.Context, connID, pin string, sessionID uint) {
	raw, err := s.store.Get(ctx, pin, fieldIndex)
	if err != nil {
		s.log.Warn("late join sync skipped", zap.String("pin", pin), zap.Error(err))
		return
	}
	index, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || index < 0 {
		return
	}

	questions, err := s.catalog.GetQuestionsOrdered(ctx, sessionID)
	if err != nil {
		s.log.Warn("late join sync skipped", zap.String("pin", pin), zap.Error(err))
		return
	}
	if index >= int64(len(questions)) {
		return
	}
	s.publisher.Send(connID, message(EventNewQuestion, questionPayload(questions, index)))
}

// StartGame announces the game and moves to the first question. It only
// succeeds once per session.
func (s *SessionService) StartGame(ctx context.Context, pin string) error {
	if pin == "" {
		return apperrors.NewMissingSessionPinError()
	}
	notStarted := int64(-1)
	return s.advance(ctx, pin, &notStarted, true)
}

// Advance moves to the next question, or ends the game after the last one.
// With fromIndex set the move only happens if the game is still on that
// question, so repeated clicks advance once.
func (s *SessionService) Advance(ctx context.Context, pin string, fromIndex *int64) error {
	if pin == "" {
		return apperrors.NewMissingSessionPinError()
	}
	return s.advance(ctx, pin, fromIndex, false)
}

func (s *SessionService) advance(ctx context.Context, pin string, expect *int64, starting bool) error {
	now := s.now()
	index, err := s.store.IncrementIf(ctx, pin, fieldIndex, 1, state.Cond{
		Expect:  expect,
		Require: map[string]string{fieldActive: "1"},
		Set:     map[string]string{fieldStartTime: strconv.FormatInt(now.UnixMilli(), 10)},
	})
	switch {
	case errors.Is(err, state.ErrPrecondition):
		return apperrors.NewSessionNotActiveError(pin)
	case errors.Is(err, state.ErrConflict):
		if starting {
			return apperrors.NewAlreadyStartedError(pin)
		}
		return apperrors.NewStaleSubmissionError(*expect, index)
	case err != nil:
		return s.storeError(pin, err)
	}

	if starting {
		s.publisher.Broadcast(pin, message(EventGameStarted, nil))
	}

	sessionID, questions, err := s.sessionQuestions(ctx, pin)
	if err != nil {
		return err
	}

	count := int64(len(questions))
	switch {
	case index < count:
		if err := s.cacheQuestion(ctx, pin, index, questions[index]); err != nil {
			return s.storeError(pin, err)
		}
		s.publisher.Broadcast(pin, message(EventNewQuestion, questionPayload(questions, index)))
		s.log.Info("question started", zap.String("pin", pin), zap.Int64("index", index))
		return nil
	case index == count:
		if err := s.finishGame(ctx, pin, sessionID, questions); err != nil {
			return err
		}
		err := s.catalog.TransitionStatus(ctx, sessionID, models.SessionStatusActive, models.SessionStatusFinished, now)
		if err != nil {
			s.log.Warn("session status not finalized",
				zap.Uint("session_id", sessionID),
				zap.Error(err),
			)
		}
		return nil
	default:
		return apperrors.NewSessionNotActiveError(pin)
	}
}

func (s *SessionService) sessionQuestions(ctx context.Context, pin string) (uint, []models.Question, error) {
	raw, err := s.store.Get(ctx, pin, fieldSessionID)
	if err != nil {
		return 0, nil, s.storeError(pin, err)
	}
	sessionID := parseID(raw)
	questions, err := s.catalog.GetQuestionsOrdered(ctx, sessionID)
	if err != nil {
		return 0, nil, err
	}
	return sessionID, questions, nil
}

func (s *SessionService) cacheQuestion(ctx context.Context, pin string, index int64, q models.Question) error {
	data, err := json.Marshal(cachedQuestion{Correct: q.CorrectIndex, Options: len(q.Options)})
	if err != nil {
		return err
	}
	return s.store.HashSet(ctx, pin, subkeyQuestions, map[string]string{
		strconv.FormatInt(index, 10): string(data),
	})
}

// questionAt reads the cached question data, falling back to the catalog
// when the advance that set the index has not cached it yet.
func (s *SessionService) questionAt(ctx context.Context, pin string, sessionID uint, index int64) (*cachedQuestion, error) {
	raw, ok, err := s.store.HashGet(ctx, pin, subkeyQuestions, strconv.FormatInt(index, 10))
	if err != nil {
		return nil, s.storeError(pin, err)
	}
	if ok {
		var cached cachedQuestion
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return &cached, nil
		}
	}

	questions, err := s.catalog.GetQuestionsOrdered(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if index >= int64(len(questions)) {
		return nil, apperrors.NewNoActiveQuestionError(pin)
	}
	q := questions[index]
	if err := s.cacheQuestion(ctx, pin, index, q); err != nil {
		s.log.Warn("failed to cache question", zap.String("pin", pin), zap.Int64("index", index), zap.Error(err))
	}
	return &cachedQuestion{Correct: q.CorrectIndex, Options: len(q.Options)}, nil
}

// SubmitAnswer records a player's choice for the current question. The
// latest choice is the one stored, but points are only awarded for the
// first submission per player and question, and that submission's option
// is kept with the award.
func (s *SessionService) SubmitAnswer(ctx context.Context, connID, pin string, playerID uint, option int, claimedIndex *int64) (*AnswerResultPayload, error) {
	if pin == "" {
		return nil, apperrors.NewMissingSessionPinError()
	}

	fields, err := s.store.GetAll(ctx, pin)
	if err != nil {
		return nil, s.storeError(pin, err)
	}
	if fields[fieldActive] != "1" {
		return nil, apperrors.NewSessionNotActiveError(pin)
	}

	pid := strconv.FormatUint(uint64(playerID), 10)
	if _, ok, err := s.store.HashGet(ctx, pin, subkeyPlayers, pid); err != nil {
		return nil, s.storeError(pin, err)
	} else if !ok {
		return nil, apperrors.NewPlayerNotFoundError(playerID)
	}

	index, err := strconv.ParseInt(fields[fieldIndex], 10, 64)
	if err != nil {
		return nil, s.storeError(pin, fmt.Errorf("corrupt question index %q: %w", fields[fieldIndex], err))
	}
	if index < 0 {
		return nil, apperrors.NewNoActiveQuestionError(pin)
	}
	if claimedIndex != nil && *claimedIndex != index {
		return nil, apperrors.NewStaleSubmissionError(*claimedIndex, index)
	}

	question, err := s.questionAt(ctx, pin, parseID(fields[fieldSessionID]), index)
	if err != nil {
		return nil, err
	}
	if option < 0 || option >= question.Options {
		return nil, apperrors.NewValidationError("answer_index", "out of range")
	}

	if err := s.store.HashSet(ctx, pin, answersKey(index), map[string]string{pid: strconv.Itoa(option)}); err != nil {
		return nil, s.storeError(pin, err)
	}

	elapsed := 0.0
	if startMs, err := strconv.ParseInt(fields[fieldStartTime], 10, 64); err == nil {
		elapsed = float64(s.now().UnixMilli()-startMs) / 1000
	}
	correct := option == question.Correct
	points := s.scoring.Score(correct, elapsed)

	awarded, total, err := s.store.ClaimAndIncrement(ctx, pin, awardedKey(index), pid, encodeAward(option, points), subkeyScores, int64(points))
	if err != nil {
		return nil, s.storeError(pin, err)
	}
	added := 0
	if awarded {
		added = points
	}

	result := &AnswerResultPayload{Correct: correct, Score: total, PointsAdded: added}
	s.publisher.Send(connID, message(EventAnswerResult, result))
	s.broadcastLeaderboard(ctx, pin)

	s.log.Debug("answer recorded",
		zap.String("pin", pin),
		zap.Uint("player_id", playerID),
		zap.Int64("index", index),
		zap.Bool("correct", correct),
		zap.Int("points_added", added),
	)
	return result, nil
}

func (s *SessionService) leaderboard(ctx context.Context, pin string) ([]LeaderboardEntry, error) {
	all, err := s.store.HashGetAllMany(ctx, pin, subkeyPlayers, subkeyScores)
	if err != nil {
		return nil, err
	}
	return RankLeaderboard(parseScores(all[1]), all[0]), nil
}

func (s *SessionService) broadcastLeaderboard(ctx context.Context, pin string) {
	board, err := s.leaderboard(ctx, pin)
	if err != nil {
		s.log.Warn("leaderboard not broadcast", zap.String("pin", pin), zap.Error(err))
		return
	}
	s.publisher.Broadcast(pin, message(EventUpdateLeaderboard, board))
}

// finishGame ends a running game. Only the first caller gets past the
// finished latch, so game over is announced and results are saved once.
func (s *SessionService) finishGame(ctx context.Context, pin string, sessionID uint, questions []models.Question) error {
	notFinished := int64(0)
	_, err := s.store.IncrementIf(ctx, pin, fieldFinished, 1, state.Cond{
		Expect: &notFinished,
		Set:    map[string]string{fieldActive: "0"},
	})
	if errors.Is(err, state.ErrConflict) {
		return nil
	}
	if err != nil {
		return s.storeError(pin, err)
	}

	board, err := s.leaderboard(ctx, pin)
	if err != nil {
		return s.storeError(pin, err)
	}
	s.publisher.Broadcast(pin, message(EventGameOver, GameOverPayload{Leaderboard: board}))

	if err := s.flushResults(ctx, pin, sessionID, questions); err != nil {
		s.log.Error("failed to save game results",
			zap.String("pin", pin),
			zap.Uint("session_id", sessionID),
			zap.Error(err),
		)
	}
	s.log.Info("game over", zap.String("pin", pin), zap.Int("players", len(board)))
	return nil
}

// UpdateSessionStatus applies an administrative status change and brings
// the live state in line with it.
func (s *SessionService) UpdateSessionStatus(ctx context.Context, sessionID uint, status string) (*models.Session, error) {
	if !validStatus(status) {
		return nil, apperrors.NewValidationError("status", "must be PREPARED, ACTIVE or FINISHED")
	}

	session, err := s.catalog.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	from := session.Status
	if !CanTransition(from, status) {
		return nil, apperrors.NewInvalidTransitionError(from, status)
	}

	now := s.now()
	if err := s.catalog.TransitionStatus(ctx, sessionID, from, status, now); err != nil {
		return nil, err
	}
	session.Status = status

	switch status {
	case models.SessionStatusActive:
		err := s.store.Set(ctx, session.Pin, map[string]string{fieldActive: "1"})
		if errors.Is(err, state.ErrNotFound) {
			err = s.store.Create(ctx, session.Pin, initialState(session, true))
		}
		if err != nil {
			return nil, s.storeError(session.Pin, err)
		}
	case models.SessionStatusFinished:
		session.FinishedAt = &now
		if from == models.SessionStatusActive {
			questions, err := s.catalog.GetQuestionsOrdered(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			err = s.finishGame(ctx, session.Pin, sessionID, questions)
			if err != nil && !errors.Is(err, apperrors.ErrSessionNotFound) {
				return nil, err
			}
		} else {
			err := s.store.Set(ctx, session.Pin, map[string]string{fieldActive: "0"})
			if err != nil && !errors.Is(err, state.ErrNotFound) {
				return nil, s.storeError(session.Pin, err)
			}
		}
	}

	s.log.Info("session status changed",
		zap.Uint("session_id", sessionID),
		zap.String("from", from),
		zap.String("to", status),
	)
	return session, nil
}

// GetState describes a session. Sessions whose live state has expired are
// reported from the catalog alone with Live unset.
func (s *SessionService) GetState(ctx context.Context, pin string) (*GameState, error) {
	if pin == "" {
		return nil, apperrors.NewMissingSessionPinError()
	}
	session, err := s.catalog.GetSessionByPin(ctx, pin)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewSessionNotFoundError(pin)
		}
		return nil, err
	}
	questions, err := s.catalog.GetQuestionsOrdered(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	gs := &GameState{
		SessionID:            session.ID,
		Pin:                  session.Pin,
		Title:                session.Title,
		Status:               session.Status,
		CurrentQuestionIndex: -1,
		TotalQuestions:       len(questions),
		Leaderboard:          []LeaderboardEntry{},
	}

	fields, err := s.store.GetAll(ctx, pin)
	if errors.Is(err, state.ErrNotFound) {
		return gs, nil
	}
	if err != nil {
		return nil, s.storeError(pin, err)
	}
	all, err := s.store.HashGetAllMany(ctx, pin, subkeyPlayers, subkeyScores)
	if err != nil {
		return nil, s.storeError(pin, err)
	}

	gs.Live = true
	gs.IsActive = fields[fieldActive] == "1"
	if index, err := strconv.ParseInt(fields[fieldIndex], 10, 64); err == nil {
		gs.CurrentQuestionIndex = index
	}
	gs.PlayerCount = len(all[0])
	gs.Connected = s.publisher.RoomSize(pin)
	gs.Leaderboard = RankLeaderboard(parseScores(all[1]), all[0])
	return gs, nil
}

// storeError maps a state store failure to the error reported to callers.
func (s *SessionService) storeError(pin string, err error) error {
	if errors.Is(err, state.ErrNotFound) {
		return apperrors.NewSessionNotFoundError(pin)
	}
	s.log.Error("session state store failed", zap.String("pin", pin), zap.Error(err))
	return apperrors.NewGameUnavailableError(err)
}

func questionPayload(questions []models.Question, index int64) QuestionPayload {
	q := questions[index]
	return QuestionPayload{
		Text:    q.Text,
		Options: q.Options,
		Index:   int(index),
		Total:   len(questions),
	}
}

func parseID(raw string) uint {
	id, _ := strconv.ParseUint(raw, 10, 64)
	return uint(id)
}
