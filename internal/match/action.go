package match

import (
	"errors"
	"fmt"
	"math"

	"github.com/ShaharFullStack/tdscorchedearth/internal/combat"
)

// ErrInvalidAction действие не проходит проверку формата
var ErrInvalidAction = errors.New("invalid action")

// ActionType словарь действий игрока
type ActionType string

const (
	ActionFire    ActionType = "fire"
	ActionRotate  ActionType = "rotate"
	ActionElevate ActionType = "elevate"
	ActionPower   ActionType = "power"
	ActionMove    ActionType = "move"
)

// Action команда игрока. Amount для rotate/elevate в радианах,
// Increase для power, Direction и Active для move.
type Action struct {
	Type      ActionType       `json:"type"`
	Amount    float64          `json:"amount,omitempty"`
	Increase  bool             `json:"increase,omitempty"`
	Direction combat.Direction `json:"direction,omitempty"`
	Active    bool             `json:"active,omitempty"`
}

// Validate проверяет формат действия, но не его уместность в текущей фазе
func (a Action) Validate() error {
	switch a.Type {
	case ActionFire, ActionPower:
		return nil
	case ActionRotate, ActionElevate:
		if math.IsNaN(a.Amount) || math.IsInf(a.Amount, 0) {
			return fmt.Errorf("%s amount %v: %w", a.Type, a.Amount, ErrInvalidAction)
		}
		return nil
	case ActionMove:
		if !a.Direction.Valid() {
			return fmt.Errorf("move direction %q: %w", a.Direction, ErrInvalidAction)
		}
		return nil
	}
	return fmt.Errorf("action type %q: %w", a.Type, ErrInvalidAction)
}
