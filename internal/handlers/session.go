package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"live-quiz-backend/internal/services"
)

type SessionHandler struct {
	sessionService *services.SessionService
	log            *zap.Logger
}

func NewSessionHandler(sessionService *services.SessionService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, log: log}
}

type CreateSessionRequest struct {
	Title string `json:"title" binding:"max=100" example:"Friday quiz"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PREPARED ACTIVE FINISHED" example:"ACTIVE"`
}

type AddQuestionRequest struct {
	Text         string   `json:"text" binding:"required,max=200" example:"What is 2+2?"`
	Options      []string `json:"options" binding:"required" example:"3,4,5"`
	CorrectIndex *int     `json:"correct_index" binding:"required" example:"1"`
}

// CreateSession godoc
// @Summary      Create a quiz session
// @Description  Create a PREPARED session with a fresh join pin
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateSessionRequest true "Session data"
// @Success      201 {object} models.Session
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.sessionService.CreateSession(c.Request.Context(), req.Title)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// ListSessions godoc
// @Summary      List sessions
// @Description  All sessions, newest first
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} models.Session
// @Router       /api/v1/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	sessions, err := h.sessionService.ListSessions(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// GetSession godoc
// @Summary      Get a session
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {object} models.Session
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	session, err := h.sessionService.GetSession(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// UpdateStatus godoc
// @Summary      Change session status
// @Description  PREPARED -> ACTIVE -> FINISHED, or PREPARED -> FINISHED to abort
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body UpdateStatusRequest true "New status"
// @Success      200 {object} models.Session
// @Failure      409 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/status [put]
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.sessionService.UpdateSessionStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// AddQuestion godoc
// @Summary      Add a question
// @Description  Append a question to a session that has not finished
// @Tags         questions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Param        request body AddQuestionRequest true "Question data"
// @Success      201 {object} models.Question
// @Failure      400 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/questions [post]
func (h *SessionHandler) AddQuestion(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req AddQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	question, err := h.sessionService.AddQuestion(c.Request.Context(), id, req.Text, req.Options, *req.CorrectIndex)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// ListQuestions godoc
// @Summary      List questions
// @Tags         questions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {array} models.Question
// @Router       /api/v1/sessions/{id}/questions [get]
func (h *SessionHandler) ListQuestions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	questions, err := h.sessionService.ListQuestions(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// ListPlayers godoc
// @Summary      Session results
// @Description  Players ranked by final score, written when the game ends
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Session ID"
// @Success      200 {array} models.Player
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/sessions/{id}/players [get]
func (h *SessionHandler) ListPlayers(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	players, err := h.sessionService.ListPlayers(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, players)
}

// GetState godoc
// @Summary      Live game state
// @Description  Current question, activity and leaderboard of a session
// @Tags         state
// @Produce      json
// @Param        pin path string true "Session pin"
// @Success      200 {object} services.GameState
// @Failure      404 {object} ErrorResponse
// @Router       /api/v1/state/{pin} [get]
func (h *SessionHandler) GetState(c *gin.Context) {
	gs, err := h.sessionService.GetState(c.Request.Context(), c.Param("pin"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gs)
}
