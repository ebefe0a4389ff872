package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ShaharFullStack/tdscorchedearth/internal/auth"
)

const (
	ctxUserID   = "user_id"
	ctxUsername = "username"
	ctxGuest    = "guest"
)

// CredentialsRequest запрос входа и регистрации
type CredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	grant, err := s.auth.Register(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		fail(c, http.StatusConflict, "Пользователь уже существует")
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidCredentials):
		fail(c, http.StatusBadRequest, "Недопустимое имя пользователя или пароль")
	case err != nil:
		s.log.Error("❌ Ошибка регистрации %q: %v", req.Username, err)
		fail(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
	default:
		respond(c, http.StatusCreated, "Пользователь создан", grant)
	}
}

func (s *Server) handleLogin(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Неверный формат запроса")
		return
	}
	grant, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, "Неверное имя пользователя или пароль")
	case err != nil:
		s.log.Error("❌ Ошибка входа %q: %v", req.Username, err)
		fail(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
	default:
		respond(c, http.StatusOK, "Успешный вход", grant)
	}
}

func (s *Server) handleGuest(c *gin.Context) {
	grant, err := s.auth.Guest()
	if err != nil {
		s.log.Error("❌ Ошибка гостевого входа: %v", err)
		fail(c, http.StatusInternalServerError, "Внутренняя ошибка сервера")
		return
	}
	respond(c, http.StatusCreated, "Гостевая сессия", grant)
}

// bearerToken токен из заголовка Authorization или параметра token
// (браузерный WebSocket не умеет ставить заголовки)
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

func (s *Server) identify(c *gin.Context) (*auth.Claims, bool) {
	token := bearerToken(c)
	if token == "" {
		fail(c, http.StatusUnauthorized, "Отсутствует токен авторизации")
		return nil, false
	}
	claims, err := s.auth.Authenticate(token)
	if err != nil {
		fail(c, http.StatusUnauthorized, "Недействительный токен")
		return nil, false
	}
	c.Set(ctxUserID, claims.UserID)
	c.Set(ctxUsername, claims.Username)
	c.Set(ctxGuest, claims.Guest)
	return claims, true
}

// authMiddleware проверяет JWT и кладёт личность в контекст
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := s.identify(c); !ok {
			return
		}
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(ctxUserID)
}
