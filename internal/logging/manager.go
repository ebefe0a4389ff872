package logging

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Component имена подсистем сервера, у каждой свой файл логов
const (
	ComponentMatch   = "match"
	ComponentServer  = "server"
	ComponentAPI     = "api"
	ComponentStorage = "storage"
	ComponentSession = "session"
)

// Registry хранит по одному логгеру на подсистему.
// Уровень консоли, заданный через SetConsoleLevel, получают и уже открытые,
// и будущие логгеры.
type Registry struct {
	mu      sync.Mutex
	loggers map[string]*Logger
	console *LogLevel
}

var (
	registry     *Registry
	registryOnce sync.Once
)

// NewRegistry пустой реестр; обычно хватает глобального Loggers()
func NewRegistry() *Registry {
	return &Registry{loggers: make(map[string]*Logger)}
}

// Loggers глобальный реестр подсистем
func Loggers() *Registry {
	registryOnce.Do(func() { registry = NewRegistry() })
	return registry
}

// Get логгер подсистемы. Если файл открыть не удалось, подсистема пишет
// только в stderr, а ошибка попадает в этот же логгер.
func (r *Registry) Get(component string) *Logger {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.loggers[component]; ok {
		return l
	}

	l, err := NewLogger(component)
	if err != nil {
		l = NewConsoleLogger(component, os.Stderr)
		l.Warn("⚠️ Файл логов недоступен: %v", err)
	}
	if r.console != nil {
		l.SetLevels(*r.console, l.fileLevel())
	}
	r.loggers[component] = l
	return l
}

// SetConsoleLevel меняет уровень консоли у всех подсистем
func (r *Registry) SetConsoleLevel(level LogLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.console = &level
	for _, l := range r.loggers {
		l.SetLevels(level, l.fileLevel())
	}
}

// SetLevels уровни одной уже открытой подсистемы
func (r *Registry) SetLevels(component string, console, file LogLevel) error {
	r.mu.Lock()
	l, ok := r.loggers[component]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("логгер %q не открыт", component)
	}
	l.SetLevels(console, file)
	return nil
}

// Components открытые подсистемы по алфавиту
func (r *Registry) Components() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.loggers))
	for c := range r.loggers {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// CloseAll закрывает файлы и очищает реестр
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for c, l := range r.loggers {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c, err))
		}
	}
	r.loggers = make(map[string]*Logger)
	return errors.Join(errs...)
}

func GetMatchLogger() *Logger { return Loggers().Get(ComponentMatch) }
func GetServerLogger() *Logger { return Loggers().Get(ComponentServer) }
func GetAPILogger() *Logger { return Loggers().Get(ComponentAPI) }
func GetStorageLogger() *Logger { return Loggers().Get(ComponentStorage) }
func GetSessionLogger() *Logger { return Loggers().Get(ComponentSession) }
