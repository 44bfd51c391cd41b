package core_test

import (
	"errors"
	"testing"

	"distribution-backoffice/internal/core"
)

func TestStateMachine_PipelineAdvance(t *testing.T) {
	m := core.NewStateMachine()

	steps := []struct {
		from, to core.OrderStatus
		actor    core.Role
	}{
		{core.StatusFresh, core.StatusAssigned, core.RoleAdmin},
		{core.StatusAssigned, core.StatusPacked, core.RolePacker},
		{core.StatusPacked, core.StatusChecked, core.RoleChecker},
		{core.StatusChecked, core.StatusDispatched, core.RoleDispatcher},
	}
	for _, s := range steps {
		if err := m.Validate(s.from, s.to, s.actor); err != nil {
			t.Errorf("%s → %s by %s should be legal: %v", s.from, s.to, s.actor, err)
		}
	}

	// Admin may advance any step.
	if err := m.Validate(core.StatusPacked, core.StatusChecked, core.RoleAdmin); err != nil {
		t.Errorf("admin should advance packed → checked: %v", err)
	}
}

func TestStateMachine_SkipAndReverseBlocked(t *testing.T) {
	m := core.NewStateMachine()

	cases := []struct {
		name     string
		from, to core.OrderStatus
		actor    core.Role
	}{
		{"skip forward", core.StatusFresh, core.StatusPacked, core.RoleAdmin},
		{"skip to billed", core.StatusAssigned, core.StatusChecked, core.RoleAdmin},
		{"reverse", core.StatusChecked, core.StatusPacked, core.RoleAdmin},
		{"same status", core.StatusPacked, core.StatusPacked, core.RoleAdmin},
		{"from dispatched", core.StatusDispatched, core.StatusRejected, core.RoleAdmin},
		{"from rejected", core.StatusRejected, core.StatusFresh, core.RoleAdmin},
		{"into payment", core.StatusFresh, core.StatusPayment, core.RoleAdmin},
		{"from return", core.StatusReturn, core.StatusAssigned, core.RoleAdmin},
	}
	for _, c := range cases {
		if err := m.Validate(c.from, c.to, c.actor); !errors.Is(err, core.ErrIllegalTransition) {
			t.Errorf("%s: %s → %s should be illegal, got %v", c.name, c.from, c.to, err)
		}
	}
}

func TestStateMachine_RoleOwnership(t *testing.T) {
	m := core.NewStateMachine()

	// A packer may only advance into packed.
	if err := m.Validate(core.StatusPacked, core.StatusChecked, core.RolePacker); !errors.Is(err, core.ErrIllegalTransition) {
		t.Errorf("packer advancing packed → checked should be illegal, got %v", err)
	}
	if err := m.Validate(core.StatusFresh, core.StatusAssigned, core.RoleChecker); !errors.Is(err, core.ErrIllegalTransition) {
		t.Errorf("checker advancing fresh → assigned should be illegal, got %v", err)
	}

	// Only admin rejects.
	if err := m.Validate(core.StatusPacked, core.StatusRejected, core.RolePacker); !errors.Is(err, core.ErrIllegalTransition) {
		t.Errorf("packer rejecting should be illegal, got %v", err)
	}
	if err := m.Validate(core.StatusPacked, core.StatusRejected, core.RoleAdmin); err != nil {
		t.Errorf("admin rejecting a packed order should be legal: %v", err)
	}
}

func TestStateMachine_Effect(t *testing.T) {
	m := core.NewStateMachine()

	if got := m.Effect(core.StatusPacked, core.StatusChecked, false); got != core.EffectBill {
		t.Errorf("packed → checked should bill, got %v", got)
	}
	// Moving within the billed set must not bill again.
	if got := m.Effect(core.StatusChecked, core.StatusDispatched, true); got != core.EffectNone {
		t.Errorf("checked → dispatched should have no effect, got %v", got)
	}
	if got := m.Effect(core.StatusChecked, core.StatusRejected, true); got != core.EffectReverse {
		t.Errorf("rejecting a billed order should reverse, got %v", got)
	}
	// Rejecting before billing restores nothing.
	if got := m.Effect(core.StatusAssigned, core.StatusRejected, false); got != core.EffectNone {
		t.Errorf("rejecting an unbilled order should have no effect, got %v", got)
	}
}
