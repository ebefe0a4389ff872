package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/session"
	"github.com/ShaharFullStack/tdscorchedearth/internal/storage"
)

// UpgradeRequest покупка улучшения
type UpgradeRequest struct {
	Upgrade string `json:"upgrade" binding:"required"`
}

// ProfileResponse прогресс и цены следующих уровней
type ProfileResponse struct {
	UserID   string                 `json:"user_id"`
	Guest    bool                   `json:"guest"`
	Progress combat.Progression     `json:"progress"`
	Prices   map[combat.Upgrade]int `json:"prices"`
}

func upgradePrices(p combat.Progression) map[combat.Upgrade]int {
	prices := make(map[combat.Upgrade]int, len(combat.AllUpgrades))
	for _, u := range combat.AllUpgrades {
		if level, ok := p.Upgrades.Level(u); ok && level < combat.MaxUpgradeLevel {
			prices[u] = combat.UpgradeCost(level)
		}
	}
	return prices
}

func (s *Server) handleGetProfile(c *gin.Context) {
	id := userID(c)
	progress, err := storage.LoadOrCreate(c.Request.Context(), s.profiles, id)
	if err != nil {
		s.log.Warn("💾 Профиль %s недоступен: %v", id, err)
		fail(c, http.StatusServiceUnavailable, "Хранилище профилей недоступно")
		return
	}
	respond(c, http.StatusOK, "Профиль", ProfileResponse{
		UserID:   id,
		Guest:    c.GetBool(ctxGuest),
		Progress: progress,
		Prices:   upgradePrices(progress),
	})
}

// handlePurchaseUpgrade покупает улучшение. Если у игрока есть активный
// матч, покупка идёт через него, чтобы прогресс не разошёлся.
func (s *Server) handlePurchaseUpgrade(c *gin.Context) {
	var req UpgradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	upgrade := combat.Upgrade(req.Upgrade)
	id := userID(c)

	if sess, ok := s.sessions.ActiveForUser(id); ok {
		ctx, cancel := sessionContext(c)
		defer cancel()
		res, err := sess.PurchaseUpgrade(ctx, upgrade)
		if err != nil {
			s.sessionError(c, err)
			return
		}
		respond(c, http.StatusOK, "Улучшение куплено", res)
		return
	}

	s.shopMu.Lock()
	defer s.shopMu.Unlock()
	ctx := c.Request.Context()
	progress, err := storage.LoadOrCreate(ctx, s.profiles, id)
	if err != nil {
		s.log.Warn("💾 Профиль %s недоступен: %v", id, err)
		fail(c, http.StatusServiceUnavailable, "Хранилище профилей недоступно")
		return
	}
	level, cost, err := purchase(&progress, upgrade)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	if err := s.profiles.Save(ctx, id, progress); err != nil {
		s.log.Warn("💾 Профиль %s не сохранён: %v", id, err)
		fail(c, http.StatusServiceUnavailable, "Хранилище профилей недоступно")
		return
	}
	respond(c, http.StatusOK, "Улучшение куплено", session.UpgradeResult{
		Upgrade:  upgrade,
		Level:    level,
		Cost:     cost,
		Progress: progress,
		Saved:    true,
	})
}

// purchase покупает следующий уровень по цене текущего
func purchase(p *combat.Progression, t combat.Upgrade) (level, cost int, err error) {
	current, ok := p.Upgrades.Level(t)
	if !ok {
		return 0, 0, fmt.Errorf("%s: %w", t, combat.ErrUnknownUpgrade)
	}
	cost = combat.UpgradeCost(current)
	level, err = p.PurchaseUpgrade(t, cost)
	return level, cost, err
}
