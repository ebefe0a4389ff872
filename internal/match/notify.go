package match

import (
	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
	"github.com/ShaharFullStack/tdscorchedearth/internal/vec"
)

// NotificationKind тип уведомления для интерфейса
type NotificationKind string

const (
	NotifyAction    NotificationKind = "action"
	NotifyShot      NotificationKind = "shot"
	NotifyExplosion NotificationKind = "explosion"
	NotifyTurn      NotificationKind = "turn"
	NotifyMatchOver NotificationKind = "match_over"
	NotifyMessage   NotificationKind = "message"
)

// Notification изменение состояния матча для интерфейса.
// Здоровье и топливо в процентах 0..100.
type Notification struct {
	MatchID     string              `json:"matchId"`
	Kind        NotificationKind    `json:"kind"`
	Phase       Phase               `json:"phase"`
	Turn        int                 `json:"turn"`
	Epoch       uint64              `json:"epoch"`
	Health      float64             `json:"health"`
	EnemyHealth map[string]float64  `json:"enemyHealth"`
	Power       float64             `json:"power"`
	Wind        float64             `json:"wind"`
	Fuel        float64             `json:"fuel"`
	Message     string              `json:"message,omitempty"`
	Outcome     Outcome             `json:"outcome,omitempty"`
	Explosion   *vec.Vec3           `json:"explosion,omitempty"`
	Reward      *combat.Reward      `json:"reward,omitempty"`
	Progress    *combat.Progression `json:"progress,omitempty"`
}

// Notifier получатель уведомлений матча
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc адаптер функции к Notifier
type NotifierFunc func(n Notification)

// Notify вызывает f(n)
func (f NotifierFunc) Notify(n Notification) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}
