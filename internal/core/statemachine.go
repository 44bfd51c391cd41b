package core

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition is returned when a requested status change is not
// permitted for the acting role.
var ErrIllegalTransition = errors.New("illegal status transition")

// pipelineOrder fixes the forward sequence of the fulfillment pipeline.
var pipelineOrder = []OrderStatus{
	StatusFresh, StatusAssigned, StatusPacked, StatusChecked, StatusDispatched,
}

// roleOwnedStep maps each linear fulfillment role to the single step it may
// advance (the status it moves an order INTO).
var roleOwnedStep = map[Role]OrderStatus{
	RolePacker:     StatusPacked,
	RoleChecker:    StatusChecked,
	RoleDispatcher: StatusDispatched,
}

// TransitionEffect classifies what a legal transition means for the ledgers.
type TransitionEffect int

const (
	// EffectNone: no ledger side effect (includes checked → dispatched, which
	// must not re-trigger deduction).
	EffectNone TransitionEffect = iota
	// EffectBill: the order enters the billed set from outside it.
	EffectBill
	// EffectReverse: the order leaves the billed set via rejection with a
	// non-zero billed amount to restore.
	EffectReverse
)

// StateMachine validates order status transitions and classifies their ledger
// effect. It holds no state of its own.
type StateMachine struct{}

// NewStateMachine returns the order lifecycle state machine.
func NewStateMachine() *StateMachine { return &StateMachine{} }

func pipelineIndex(s OrderStatus) int {
	for i, st := range pipelineOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Validate checks that actor may move an order from its current status to
// next. It returns ErrIllegalTransition (wrapped with detail) when not.
func (m *StateMachine) Validate(current, next OrderStatus, actor Role) error {
	if current == StatusPayment || current == StatusReturn ||
		next == StatusPayment || next == StatusReturn {
		return fmt.Errorf("%w: %s → %s (transaction entries have no pipeline)", ErrIllegalTransition, current, next)
	}
	if current.Terminal() {
		return fmt.Errorf("%w: order is %s (terminal)", ErrIllegalTransition, current)
	}
	if next == current {
		return fmt.Errorf("%w: order is already %s", ErrIllegalTransition, current)
	}

	if next == StatusRejected {
		if actor != RoleAdmin {
			return fmt.Errorf("%w: only admin may reject (actor %s)", ErrIllegalTransition, actor)
		}
		return nil
	}

	ci, ni := pipelineIndex(current), pipelineIndex(next)
	if ci < 0 || ni < 0 {
		return fmt.Errorf("%w: %s → %s", ErrIllegalTransition, current, next)
	}
	if ni != ci+1 {
		return fmt.Errorf("%w: %s → %s skips or reverses the pipeline", ErrIllegalTransition, current, next)
	}

	if actor == RoleAdmin {
		return nil
	}
	owned, ok := roleOwnedStep[actor]
	if !ok || owned != next {
		return fmt.Errorf("%w: role %s may not advance an order to %s", ErrIllegalTransition, actor, next)
	}
	return nil
}

// Effect classifies the ledger consequence of a legal transition, given the
// order's billing state before the transition.
func (m *StateMachine) Effect(current, next OrderStatus, billed bool) TransitionEffect {
	switch {
	case next.InBilledSet() && !current.InBilledSet():
		return EffectBill
	case next == StatusRejected && billed:
		return EffectReverse
	default:
		return EffectNone
	}
}
