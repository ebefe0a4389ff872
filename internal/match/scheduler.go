package match

import (
	"math"
	"sort"

	"github.com/ShaharFullStack/tdscorchedearth/internal/physics"
)

// continuation отложенное действие матча
type continuation struct {
	epoch uint64
	due   uint64
	seq   uint64
	name  string
	fn    func()
}

// Scheduler очередь отложенных продолжений, привязанных к эпохе матча.
// Продолжение устаревшей эпохи никогда не выполняется.
type Scheduler struct {
	epoch   uint64
	tick    uint64
	seq     uint64
	pending []continuation
}

// NewScheduler создает пустой планировщик в эпохе 1
func NewScheduler() *Scheduler {
	return &Scheduler{epoch: 1}
}

// TicksFor переводит задержку в секундах в логические тики, минимум один
func TicksFor(seconds float64) uint64 {
	ticks := math.Round(seconds / physics.TimeStep)
	if ticks < 1 {
		return 1
	}
	return uint64(ticks)
}

// Epoch текущая эпоха
func (s *Scheduler) Epoch() uint64 { return s.epoch }

// Tick номер последнего обработанного тика
func (s *Scheduler) Tick() uint64 { return s.tick }

// Pending количество ожидающих продолжений
func (s *Scheduler) Pending() int { return len(s.pending) }

// After планирует fn через delay секунд логического времени
func (s *Scheduler) After(delay float64, name string, fn func()) {
	s.seq++
	s.pending = append(s.pending, continuation{
		epoch: s.epoch,
		due:   s.tick + TicksFor(delay),
		seq:   s.seq,
		name:  name,
		fn:    fn,
	})
}

// Advance продвигает время на один тик и выполняет созревшие продолжения
// в порядке срока и постановки. Возвращает число выполненных.
func (s *Scheduler) Advance() int {
	s.tick++

	var due []continuation
	rest := s.pending[:0]
	for _, c := range s.pending {
		if c.due <= s.tick {
			due = append(due, c)
		} else {
			rest = append(rest, c)
		}
	}
	s.pending = rest

	sort.Slice(due, func(i, j int) bool {
		if due[i].due != due[j].due {
			return due[i].due < due[j].due
		}
		return due[i].seq < due[j].seq
	})

	ran := 0
	for _, c := range due {
		// Продолжение могло сбросить эпоху
		if c.epoch != s.epoch {
			continue
		}
		c.fn()
		ran++
	}
	return ran
}

// Reset начинает новую эпоху и отбрасывает все ожидающие продолжения
func (s *Scheduler) Reset() uint64 {
	s.epoch++
	s.pending = nil
	return s.epoch
}
