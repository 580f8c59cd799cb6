package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "live-quiz-backend/internal/errors"
	"live-quiz-backend/internal/models"
)

const maxPinAttempts = 20

// CatalogService is the durable record of sessions, questions, players
// and final answers.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// GameResults is what a finished game writes back to the catalog.
type GameResults struct {
	FinalScores map[uint]int
	Answers     []models.Answer
}

func (s *CatalogService) CreateSession(ctx context.Context, title string, pinLength int) (*models.Session, error) {
	db := s.db.WithContext(ctx)
	for attempt := 0; attempt < maxPinAttempts; attempt++ {
		pin := generatePin(pinLength)

		var count int64
		if err := db.Model(&models.Session{}).Where("pin = ?", pin).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			continue
		}

		session := models.Session{
			Pin:    pin,
			Title:  title,
			Status: models.SessionStatusPrepared,
		}
		if err := db.Create(&session).Error; err != nil {
			return nil, err
		}
		return &session, nil
	}
	return nil, fmt.Errorf("no free pin after %d attempts", maxPinAttempts)
}

// generatePin returns a random numeric pin without a leading zero.
func generatePin(length int) string {
	low := int64(1)
	for i := 1; i < length; i++ {
		low *= 10
	}
	return fmt.Sprintf("%d", low+rand.Int63n(9*low))
}

func (s *CatalogService) GetSession(ctx context.Context, id uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("session", id)
		}
		return nil, err
	}
	return &session, nil
}

func (s *CatalogService) GetSessionByPin(ctx context.Context, pin string) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).Where("pin = ?", pin).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("session", pin)
		}
		return nil, err
	}
	return &session, nil
}

// ListSessions returns every session, newest first.
func (s *CatalogService) ListSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// TransitionStatus moves a session from one status to another only if it
// still holds the expected status.
func (s *CatalogService) TransitionStatus(ctx context.Context, id uint, from, to string, at time.Time) error {
	updates := map[string]interface{}{"status": to}
	if to == models.SessionStatusFinished {
		updates["finished_at"] = at
	}

	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NewInvalidTransitionError(from, to)
	}
	return nil
}

// AddQuestion appends a question after the session's existing ones.
func (s *CatalogService) AddQuestion(ctx context.Context, sessionID uint, text string, options []string, correctIndex int) (*models.Question, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	var maxOrder int
	if err := tx.Model(&models.Question{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(order_num), -1)").
		Scan(&maxOrder).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	question := models.Question{
		SessionID:    sessionID,
		OrderNum:     maxOrder + 1,
		Text:         text,
		Options:      options,
		CorrectIndex: correctIndex,
	}
	if err := tx.Create(&question).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &question, nil
}

// GetQuestionsOrdered returns a session's questions in play order.
func (s *CatalogService) GetQuestionsOrdered(ctx context.Context, sessionID uint) ([]models.Question, error) {
	var questions []models.Question
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("order_num ASC").
		Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *CatalogService) CreatePlayer(ctx context.Context, sessionID uint, nickname string) (*models.Player, error) {
	player := models.Player{
		SessionID: sessionID,
		Nickname:  nickname,
	}
	if err := s.db.WithContext(ctx).Create(&player).Error; err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *CatalogService) DeletePlayer(ctx context.Context, playerID uint) error {
	return s.db.WithContext(ctx).Delete(&models.Player{}, playerID).Error
}

// ListPlayers returns a session's players, best final score first.
func (s *CatalogService) ListPlayers(ctx context.Context, sessionID uint) ([]models.Player, error) {
	var players []models.Player
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("final_score DESC").
		Order("id ASC").
		Find(&players).Error
	if err != nil {
		return nil, err
	}
	return players, nil
}

// SaveResults writes final scores and answers in one transaction. Answers
// already stored for a (player, question) pair are left as they are.
func (s *CatalogService) SaveResults(ctx context.Context, sessionID uint, results GameResults) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for playerID, score := range results.FinalScores {
			err := tx.Model(&models.Player{}).
				Where("id = ? AND session_id = ?", playerID, sessionID).
				Update("final_score", score).Error
			if err != nil {
				return err
			}
		}

		if len(results.Answers) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&results.Answers).Error
	})
}
