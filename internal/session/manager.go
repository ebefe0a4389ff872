package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/eventbus"
	"github.com/ShaharFullStack/tdscorchedearth/internal/logging"
	"github.com/ShaharFullStack/tdscorchedearth/internal/match"
	"github.com/ShaharFullStack/tdscorchedearth/internal/storage"
	"github.com/ShaharFullStack/tdscorchedearth/internal/terrain"
)

// Config параметры сессий
type Config struct {
	TickInterval time.Duration // период тикера, по умолчанию 1/60 с
	ActionBuffer int           // ёмкость очереди действий
	IdleTimeout  time.Duration // 0 отключает уборку простаивающих сессий
	Difficulty   combat.Difficulty
	Quality      terrain.Quality
	Style        terrain.Style
	Mobile       bool
}

// DefaultConfig настройки по умолчанию
func DefaultConfig() Config {
	return Config{
		TickInterval: time.Second / 60,
		ActionBuffer: 64,
		IdleTimeout:  30 * time.Minute,
		Difficulty:   combat.DifficultyNormal,
		Quality:      terrain.QualityHigh,
		Style:        terrain.StyleClassic,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.ActionBuffer <= 0 {
		c.ActionBuffer = def.ActionBuffer
	}
	if c.Difficulty == "" {
		c.Difficulty = def.Difficulty
	}
	if c.Quality == "" {
		c.Quality = def.Quality
	}
	if c.Style == "" {
		c.Style = def.Style
	}
	return c
}

// CreateOptions пожелания игрока к новому матчу; пустые поля берутся из Config.
type CreateOptions struct {
	UserID     string
	Difficulty combat.Difficulty
	Quality    terrain.Quality
	Style      terrain.Style
	Mobile     *bool
	EnemyCount int
	Seed       int64
}

// Manager реестр сессий.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	// createMu упорядочивает Create: у пользователя не больше одной живой сессии
	createMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	repo     storage.ProfileRepo
	bus      eventbus.EventBus
	cfg      Config
	log      *logging.Logger
	matchLog *logging.Logger
	logOnce  sync.Once
}

// NewManager создаёт реестр. Сессии живут до отмены ctx или Shutdown.
func NewManager(ctx context.Context, repo storage.ProfileRepo, bus eventbus.EventBus, cfg Config, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	mg := &Manager{
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
		repo:     repo,
		bus:      bus,
		cfg:      cfg.withDefaults(),
		log:      log,
	}
	if mg.cfg.IdleTimeout > 0 {
		mg.wg.Add(1)
		go mg.reapLoop()
	}
	return mg
}

// Config действующие настройки
func (mg *Manager) Config() Config { return mg.cfg }

// Create загружает прогресс игрока и запускает новый матч. Прежние сессии
// пользователя закрываются до загрузки прогресса, иначе их сохранения
// перезаписали бы друг друга. Если хранилище недоступно, игрок начинает
// со стартовым прогрессом.
func (mg *Manager) Create(ctx context.Context, opts CreateOptions) (*Session, error) {
	mg.createMu.Lock()
	defer mg.createMu.Unlock()

	mg.mu.RLock()
	closed := mg.closed
	mg.mu.RUnlock()
	if closed {
		return nil, ErrSessionClosed
	}

	for _, old := range mg.ForUser(opts.UserID) {
		if err := mg.Close(old.id); err == nil {
			mg.log.Info("🔁 Сессия %s заменена новой для %s", old.id, opts.UserID)
		}
	}

	progress := combat.NewProgression()
	if mg.repo != nil {
		p, err := storage.LoadOrCreate(ctx, mg.repo, opts.UserID)
		if err != nil {
			mg.log.Warn("💾 Прогресс %s не загружен, начинаем с нуля: %v", opts.UserID, err)
		} else {
			progress = p
		}
	}

	mobile := mg.cfg.Mobile
	if opts.Mobile != nil {
		mobile = *opts.Mobile
	}
	s := newSession(match.Options{
		ID:         uuid.NewString(),
		UserID:     opts.UserID,
		Progress:   &progress,
		Difficulty: pick(opts.Difficulty, mg.cfg.Difficulty),
		Quality:    pick(opts.Quality, mg.cfg.Quality),
		Style:      pick(opts.Style, mg.cfg.Style),
		Mobile:     mobile,
		EnemyCount: opts.EnemyCount,
		Seed:       opts.Seed,
		Logger:     mg.matchLogger(),
	}, mg.repo, mg.bus, mg.cfg, mg.log)

	mg.mu.Lock()
	if mg.closed {
		mg.mu.Unlock()
		return nil, ErrSessionClosed
	}
	mg.sessions[s.id] = s
	mg.mu.Unlock()

	s.start(mg.ctx)
	mg.log.Info("🎮 Сессия %s создана для %s", s.id, s.userID)
	return s, nil
}

func (mg *Manager) matchLogger() *logging.Logger {
	mg.logOnce.Do(func() {
		if mg.matchLog == nil {
			mg.matchLog = logging.GetMatchLogger()
		}
	})
	return mg.matchLog
}

func pick[T ~string](v, fallback T) T {
	if v == "" {
		return fallback
	}
	return v
}

// Get возвращает сессию по идентификатору
func (mg *Manager) Get(id string) (*Session, error) {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	s, ok := mg.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// ActiveForUser живая сессия пользователя; Create держит её единственной
func (mg *Manager) ActiveForUser(userID string) (*Session, bool) {
	list := mg.ForUser(userID)
	if len(list) == 0 {
		return nil, false
	}
	return list[len(list)-1], true
}

// ForUser сессии пользователя в порядке создания
func (mg *Manager) ForUser(userID string) []*Session {
	mg.mu.RLock()
	var out []*Session
	for _, s := range mg.sessions {
		if s.userID == userID {
			out = append(out, s)
		}
	}
	mg.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].created.Before(out[j].created) })
	return out
}

// Count число активных сессий
func (mg *Manager) Count() int {
	mg.mu.RLock()
	defer mg.mu.RUnlock()
	return len(mg.sessions)
}

// Close останавливает и удаляет сессию
func (mg *Manager) Close(id string) error {
	mg.mu.Lock()
	s, ok := mg.sessions[id]
	if ok {
		delete(mg.sessions, id)
	}
	mg.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Stop()
	mg.log.Info("👋 Сессия %s закрыта", id)
	return nil
}

// Shutdown останавливает все сессии и фоновую уборку.
func (mg *Manager) Shutdown() {
	mg.mu.Lock()
	if mg.closed {
		mg.mu.Unlock()
		return
	}
	mg.closed = true
	sessions := make([]*Session, 0, len(mg.sessions))
	for id, s := range mg.sessions {
		sessions = append(sessions, s)
		delete(mg.sessions, id)
	}
	mg.mu.Unlock()

	mg.cancel()
	for _, s := range sessions {
		<-s.done
	}
	mg.wg.Wait()
	mg.log.Info("🛑 Менеджер сессий остановлен, закрыто %d", len(sessions))
}

func (mg *Manager) reapLoop() {
	defer mg.wg.Done()
	interval := mg.cfg.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-mg.ctx.Done():
			return
		case now := <-ticker.C:
			mg.reapIdle(now)
		}
	}
}

// reapIdle закрывает сессии без активности дольше IdleTimeout.
func (mg *Manager) reapIdle(now time.Time) int {
	mg.mu.RLock()
	var idle []string
	for id, s := range mg.sessions {
		if now.Sub(s.LastActivity()) > mg.cfg.IdleTimeout {
			idle = append(idle, id)
		}
	}
	mg.mu.RUnlock()

	for _, id := range idle {
		if err := mg.Close(id); err == nil {
			mg.log.Info("⌛ Сессия %s закрыта по простою", id)
		}
	}
	return len(idle)
}
