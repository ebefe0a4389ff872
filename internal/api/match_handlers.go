package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/match"
	"github.com/ShaharFullStack/tdscorchedearth/internal/session"
	"github.com/ShaharFullStack/tdscorchedearth/internal/terrain"
)

const sessionRequestTimeout = 2 * time.Second

// CreateMatchRequest параметры нового матча; пустые поля берутся из конфигурации
type CreateMatchRequest struct {
	Difficulty string `json:"difficulty"`
	Quality    string `json:"quality"`
	Style      string `json:"style"`
	Mobile     *bool  `json:"mobile"`
	EnemyCount int    `json:"enemy_count"`
	Seed       int64  `json:"seed"`
}

// QualityRequest смена детализации рельефа
type QualityRequest struct {
	Quality string `json:"quality" binding:"required"`
}

func sessionContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), sessionRequestTimeout)
}

// ownedSession сессия из :id, принадлежащая текущему пользователю
func (s *Server) ownedSession(c *gin.Context) (*session.Session, bool) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		fail(c, http.StatusNotFound, "Матч не найден")
		return nil, false
	}
	if sess.UserID() != userID(c) {
		fail(c, http.StatusForbidden, "Чужой матч")
		return nil, false
	}
	return sess, true
}

// sessionError переводит ошибки сессии в HTTP ответ
func (s *Server) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSessionClosed), errors.Is(err, session.ErrSessionNotFound):
		fail(c, http.StatusGone, "Матч завершён")
	case errors.Is(err, session.ErrActionQueueFull):
		fail(c, http.StatusTooManyRequests, "Слишком много действий")
	case errors.Is(err, match.ErrInvalidAction):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, match.ErrMatchInProgress):
		fail(c, http.StatusConflict, "Магазин доступен только между матчами")
	case errors.Is(err, combat.ErrUnknownUpgrade):
		fail(c, http.StatusBadRequest, "Неизвестное улучшение")
	case errors.Is(err, combat.ErrUpgradeMaxed):
		fail(c, http.StatusConflict, "Улучшение уже на максимальном уровне")
	case errors.Is(err, combat.ErrInsufficientCredits):
		fail(c, http.StatusPaymentRequired, "Недостаточно кредитов")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		fail(c, http.StatusServiceUnavailable, "Матч не отвечает")
	default:
		s.log.Error("❌ Ошибка сессии: %v", err)
		fail(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
	}
}

func (s *Server) handleCreateMatch(c *gin.Context) {
	var req CreateMatchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "Неверный формат запроса")
			return
		}
	}
	if req.EnemyCount < 0 || req.EnemyCount > 8 {
		fail(c, http.StatusBadRequest, "Не больше 8 противников")
		return
	}

	opts := session.CreateOptions{
		UserID:     userID(c),
		Mobile:     req.Mobile,
		EnemyCount: req.EnemyCount,
		Seed:       req.Seed,
	}
	if req.Difficulty != "" {
		opts.Difficulty = combat.ParseDifficulty(req.Difficulty)
	}
	if req.Quality != "" {
		opts.Quality = terrain.ParseQuality(req.Quality)
	}
	if req.Style != "" {
		opts.Style = terrain.ParseStyle(req.Style)
	}

	sess, err := s.sessions.Create(c.Request.Context(), opts)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	ctx, cancel := sessionContext(c)
	defer cancel()
	snap, err := sess.Snapshot(ctx)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Матч создан", snap)
}

func (s *Server) handleGetMatch(c *gin.Context) {
	sess, ok := s.ownedSession(c)
	if !ok {
		return
	}
	ctx, cancel := sessionContext(c)
	defer cancel()
	snap, err := sess.Snapshot(ctx)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	respond(c, http.StatusOK, "Состояние матча", snap)
}

func (s *Server) handleCloseMatch(c *gin.Context) {
	sess, ok := s.ownedSession(c)
	if !ok {
		return
	}
	if err := s.sessions.Close(sess.ID()); err != nil {
		s.sessionError(c, err)
		return
	}
	respond(c, http.StatusOK, "Матч закрыт", nil)
}

// handleAction ставит действие в очередь матча. Принятое в очередь действие
// может быть отброшено матчем, если сейчас не ход игрока.
func (s *Server) handleAction(c *gin.Context) {
	sess, ok := s.ownedSession(c)
	if !ok {
		return
	}
	var action match.Action
	if err := c.ShouldBindJSON(&action); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат действия")
		return
	}
	ctx, cancel := sessionContext(c)
	defer cancel()
	if err := sess.Submit(ctx, action); err != nil {
		s.sessionError(c, err)
		return
	}
	respond(c, http.StatusAccepted, "Действие принято", action)
}

func (s *Server) handleTerrain(c *gin.Context) {
	sess, ok := s.ownedSession(c)
	if !ok {
		return
	}
	ctx, cancel := sessionContext(c)
	defer cancel()
	grid, err := sess.Terrain(ctx)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	respond(c, http.StatusOK, "Рельеф", grid)
}

func (s *Server) handleRestart(c *gin.Context) {
	sess, ok := s.ownedSession(c)
	if !ok {
		return
	}
	ctx, cancel := sessionContext(c)
	defer cancel()
	if err := sess.Restart(ctx); err != nil {
		s.sessionError(c, err)
		return
	}
	snap, err := sess.Snapshot(ctx)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	respond(c, http.StatusOK, "Матч перезапущен", snap)
}

func (s *Server) handleQuality(c *gin.Context) {
	sess, ok := s.ownedSession(c)
	if !ok {
		return
	}
	var req QualityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	ctx, cancel := sessionContext(c)
	defer cancel()
	changed, err := sess.SetQuality(ctx, terrain.ParseQuality(req.Quality))
	if err != nil {
		s.sessionError(c, err)
		return
	}
	respond(c, http.StatusOK, "Качество рельефа", gin.H{"changed": changed})
}
