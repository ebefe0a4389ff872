package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ShaharFullStack/tdscorchedearth/internal/match"
	"github.com/ShaharFullStack/tdscorchedearth/internal/session"
)

const (
	wsReadLimit    = 4096
	wsPongWait     = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteWait    = 10 * time.Second

	// FrameSnapshot клиент просит полный снимок матча
	FrameSnapshot = "snapshot"
)

// StreamFrame кадр от сервера к клиенту
type StreamFrame struct {
	Type    string      `json:"type"` // snapshot, notification, error
	Payload interface{} `json:"payload"`
}

// handleMatchStream поток уведомлений матча. Входящие кадры это действия
// в том же формате, что и POST /actions, либо {"type":"snapshot"}.
func (s *Server) handleMatchStream(c *gin.Context) {
	if _, ok := s.identify(c); !ok {
		return
	}
	sess, ok := s.ownedSession(c)
	if !ok {
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("🔌 WebSocket upgrade не удался: %v", err)
		return
	}

	updates, unsubscribe := sess.Subscribe()
	out := make(chan StreamFrame, 16)
	done := make(chan struct{})

	s.log.Debug("🔌 [%s] WebSocket подключён: %s", sess.ID(), conn.RemoteAddr())
	go s.writePump(conn, sess, updates, out, done)
	s.readPump(conn, sess, out, done)
	unsubscribe()
	s.log.Debug("🔌 [%s] WebSocket отключён", sess.ID())
}

// readPump читает действия клиента до закрытия соединения
func (s *Server) readPump(conn *websocket.Conn, sess *session.Session, out chan<- StreamFrame, done chan struct{}) {
	defer close(done)

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	s.queueSnapshot(sess, out)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("🔌 [%s] ошибка чтения: %v", sess.ID(), err)
			}
			return
		}

		var action match.Action
		if err := json.Unmarshal(data, &action); err != nil {
			sendFrame(out, StreamFrame{Type: "error", Payload: gin.H{"message": "Неверный JSON"}})
			continue
		}
		if action.Type == FrameSnapshot {
			s.queueSnapshot(sess, out)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), sessionRequestTimeout)
		err = sess.Submit(ctx, action)
		cancel()
		if err != nil {
			sendFrame(out, StreamFrame{Type: "error", Payload: gin.H{"message": err.Error()}})
		}
	}
}

func (s *Server) queueSnapshot(sess *session.Session, out chan<- StreamFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), sessionRequestTimeout)
	defer cancel()
	snap, err := sess.Snapshot(ctx)
	if err != nil {
		sendFrame(out, StreamFrame{Type: "error", Payload: gin.H{"message": err.Error()}})
		return
	}
	sendFrame(out, StreamFrame{Type: "snapshot", Payload: snap})
}

// sendFrame не блокирует читателя, если писатель не успевает
func sendFrame(out chan<- StreamFrame, f StreamFrame) {
	select {
	case out <- f:
	default:
	}
}

// writePump пересылает уведомления и ответы клиенту, держит ping
func (s *Server) writePump(conn *websocket.Conn, sess *session.Session, updates <-chan match.Notification, out <-chan StreamFrame, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	write := func(f StreamFrame) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(f) == nil
	}

	for {
		select {
		case <-done:
			return
		case n, ok := <-updates:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if !write(StreamFrame{Type: "notification", Payload: n}) {
				return
			}
		case f := <-out:
			if !write(f) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Trace("🔌 [%s] ping не отправлен: %v", sess.ID(), err)
				return
			}
		}
	}
}
