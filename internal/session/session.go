// Package session владеет матчами: каждый матч живёт в своей горутине,
// получает действия через буферизованный канал и отдаёт читателям
// копии состояния через запрос/ответ.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/eventbus"
	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
	"github.com/ShaharFullStack/tdscorchedearth/internal/match"
	"github.com/ShaharFullStack/tdscorchedearth/internal/storage"
	"github.com/ShaharFullStack/tdscorchedearth/internal/terrain"
)

var (
	// ErrSessionNotFound сессии с таким идентификатором нет
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed сессия уже остановлена
	ErrSessionClosed = errors.New("session closed")
	// ErrActionQueueFull очередь действий переполнена
	ErrActionQueueFull = errors.New("action queue full")
)

const (
	eventSource       = "session"
	persistTimeout    = 3 * time.Second
	subscriberBacklog = 64

	// PersistFailedMessage показывается игроку, если прогресс не сохранился
	PersistFailedMessage = "Прогресс не сохранён, попробуем позже"
)

type request struct {
	fn    func(m *match.Match) error
	reply chan error
}

// Session одна партия одного пользователя.
type Session struct {
	id     string
	userID string

	m    *match.Match
	repo storage.ProfileRepo
	bus  eventbus.EventBus
	log  *logging.Logger
	tick time.Duration

	actions  chan match.Action
	requests chan request
	pending  []match.Notification

	subsMu     sync.RWMutex
	subs       map[int]chan match.Notification
	nextSub    int
	subsClosed bool

	created      time.Time
	lastActivity atomic.Int64
	cancel       context.CancelFunc
	done         chan struct{}
}

// newSession создаёт матч сразу с получателем уведомлений сессии, чтобы
// первое объявление хода тоже ушло подписчикам.
func newSession(opts match.Options, repo storage.ProfileRepo, bus eventbus.EventBus, cfg Config, log *logging.Logger) *Session {
	s := &Session{
		repo:     repo,
		bus:      bus,
		log:      log,
		tick:     cfg.TickInterval,
		actions:  make(chan match.Action, cfg.ActionBuffer),
		requests: make(chan request),
		subs:     make(map[int]chan match.Notification),
		created:  time.Now(),
		done:     make(chan struct{}),
	}
	opts.Notifier = match.NotifierFunc(func(n match.Notification) {
		s.pending = append(s.pending, n)
	})
	s.m = match.New(opts)
	s.id = s.m.ID()
	s.userID = s.m.UserID()
	s.touch()
	return s
}

// ID идентификатор сессии и матча
func (s *Session) ID() string { return s.id }

// UserID владелец сессии
func (s *Session) UserID() string { return s.userID }

// CreatedAt время создания
func (s *Session) CreatedAt() time.Time { return s.created }

// LastActivity время последнего обращения игрока
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// Done закрывается, когда горутина сессии завершилась
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func (s *Session) start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	sessionsActive.Inc()
	go s.run(ctx)
}

// run главный цикл: действия, запросы и тики выполняются строго по очереди.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer sessionsActive.Dec()

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	last := time.Now()

	s.flush(ctx)
	for {
		select {
		case <-ctx.Done():
			s.closeSubscribers()
			s.log.Debug("🛑 [%s] сессия остановлена", s.id)
			return
		case a := <-s.actions:
			s.m.HandleAction(a)
		case req := <-s.requests:
			req.reply <- req.fn(s.m)
		case now := <-ticker.C:
			s.m.Advance(now.Sub(last))
			last = now
		}
		s.flush(ctx)
	}
}

// flush рассылает накопленные уведомления. Сохранение прогресса может
// добавить новое уведомление, поэтому цикл идёт до пустой очереди.
func (s *Session) flush(ctx context.Context) {
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		for _, n := range batch {
			s.broadcast(n)
			s.publish(ctx, n)
			if n.Kind == match.NotifyMatchOver && n.Progress != nil {
				s.persist(ctx, *n.Progress)
			}
		}
	}
}

func (s *Session) broadcast(n match.Notification) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- n:
		default:
			notificationsDropped.Inc()
		}
	}
}

func (s *Session) publish(ctx context.Context, n match.Notification) {
	if s.bus == nil {
		return
	}
	ev, err := eventbus.NewEnvelope(eventSource, "match."+string(n.Kind), n)
	if err != nil {
		s.log.Warn("⚠️ [%s] событие %s не собрано: %v", s.id, n.Kind, err)
		return
	}
	ev.MatchID = s.id
	ev.UserID = s.userID
	if n.Kind == match.NotifyMatchOver {
		ev.Priority = eventbus.PriorityHigh
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.log.Warn("⚠️ [%s] событие %s не опубликовано: %v", s.id, n.Kind, err)
	}
}

// persist сохраняет прогресс. Ошибка хранилища не останавливает матч:
// игрок получает сообщение, партия продолжается.
func (s *Session) persist(ctx context.Context, p combat.Progression) bool {
	if s.repo == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := s.repo.Save(ctx, s.userID, p); err != nil {
		persistTotal.WithLabelValues("error").Inc()
		s.log.Warn("💾 [%s] не удалось сохранить прогресс %s: %v", s.id, s.userID, err)
		s.m.Announce(PersistFailedMessage)
		return false
	}
	persistTotal.WithLabelValues("ok").Inc()
	s.log.Debug("💾 [%s] прогресс %s сохранён: уровень %d, кредиты %d", s.id, s.userID, p.Level, p.Credits)
	return true
}

// Submit ставит действие в очередь. Неверные действия отклоняются сразу,
// несвоевременные молча отбрасываются матчем.
func (s *Session) Submit(ctx context.Context, a match.Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.touch()
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.actions <- a:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrActionQueueFull
	}
}

// do выполняет fn в горутине сессии и ждёт результата.
func (s *Session) do(ctx context.Context, fn func(m *match.Match) error) error {
	req := request{fn: fn, reply: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot копия состояния матча
func (s *Session) Snapshot(ctx context.Context) (match.Snapshot, error) {
	var snap match.Snapshot
	err := s.do(ctx, func(m *match.Match) error {
		snap = m.Snapshot()
		return nil
	})
	return snap, err
}

// Terrain сетка высот матча
func (s *Session) Terrain(ctx context.Context) (terrain.Grid, error) {
	var grid terrain.Grid
	err := s.do(ctx, func(m *match.Match) error {
		grid = m.Terrain().Grid()
		return nil
	})
	return grid, err
}

// Restart начинает партию заново на том же рельефе
func (s *Session) Restart(ctx context.Context) error {
	s.touch()
	return s.do(ctx, func(m *match.Match) error {
		m.Restart()
		return nil
	})
}

// SetQuality меняет детализацию рельефа
func (s *Session) SetQuality(ctx context.Context, q terrain.Quality) (bool, error) {
	var changed bool
	err := s.do(ctx, func(m *match.Match) error {
		changed = m.SetQuality(q)
		return nil
	})
	return changed, err
}

// UpgradeResult итог покупки улучшения
type UpgradeResult struct {
	Upgrade  combat.Upgrade     `json:"upgrade"`
	Level    int                `json:"level"`
	Cost     int                `json:"cost"`
	Progress combat.Progression `json:"progress"`
	Saved    bool               `json:"saved"`
}

// PurchaseUpgrade покупает улучшение между партиями и сохраняет прогресс.
func (s *Session) PurchaseUpgrade(ctx context.Context, t combat.Upgrade) (UpgradeResult, error) {
	s.touch()
	res := UpgradeResult{Upgrade: t}
	err := s.do(ctx, func(m *match.Match) error {
		level, cost, err := m.PurchaseUpgrade(t)
		if err != nil {
			return err
		}
		res.Level, res.Cost = level, cost
		res.Progress = m.Progress()
		res.Saved = s.persist(ctx, res.Progress)
		return nil
	})
	if err != nil {
		return UpgradeResult{}, fmt.Errorf("purchase %s: %w", t, err)
	}
	return res, nil
}

// Subscribe подписывает на уведомления матча. Медленный подписчик теряет
// уведомления, а не тормозит матч. Канал закрывается при остановке сессии.
func (s *Session) Subscribe() (<-chan match.Notification, func()) {
	ch := make(chan match.Notification, subscriberBacklog)
	s.subsMu.Lock()
	if s.subsClosed {
		s.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
			s.subsMu.Unlock()
		})
	}
}

func (s *Session) closeSubscribers() {
	s.subsMu.Lock()
	s.subsClosed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()
}

// Stop останавливает сессию и ждёт завершения горутины.
func (s *Session) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}
