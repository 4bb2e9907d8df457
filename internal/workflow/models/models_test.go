package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "benefitflow/pkg/domain"
)

func stepIn(state StepState) *Step {
	return &Step{ID: id.NewStepID(), State: state}
}

func TestDeriveStatus(t *testing.T) {
	t.Run("all completed or skipped is completed", func(t *testing.T) {
		wf := &Workflow{Steps: []*Step{stepIn(StateCompleted), stepIn(StateSkipped)}}
		status := wf.DeriveStatus()
		assert.Equal(t, WorkflowCompleted, status.State)
		assert.Equal(t, 1.0, status.Percent)
	})

	t.Run("any terminal failure is failed", func(t *testing.T) {
		wf := &Workflow{Steps: []*Step{stepIn(StateCompleted), stepIn(StateFailed), stepIn(StateBlocked)}}
		status := wf.DeriveStatus()
		assert.Equal(t, WorkflowFailed, status.State)
		assert.InDelta(t, 1.0/3.0, status.Percent, 1e-9)
	})

	t.Run("otherwise in progress with partial percent", func(t *testing.T) {
		wf := &Workflow{Steps: []*Step{
			stepIn(StateSkipped), stepIn(StateReady),
			stepIn(StateAwaitingAuthority), stepIn(StateBlocked),
		}}
		status := wf.DeriveStatus()
		assert.Equal(t, WorkflowInProgress, status.State)
		assert.Equal(t, 0.25, status.Percent)
	})

	t.Run("escalated steps surface in status", func(t *testing.T) {
		escalated := stepIn(StateAwaitingAuthority)
		escalated.EscalationRequired = true
		wf := &Workflow{Steps: []*Step{escalated, stepIn(StateReady)}}
		status := wf.DeriveStatus()
		assert.Equal(t, []id.StepID{escalated.ID}, status.EscalatedSteps)
	})

	t.Run("empty workflow counts as completed", func(t *testing.T) {
		status := (&Workflow{}).DeriveStatus()
		assert.Equal(t, WorkflowCompleted, status.State)
	})
}

func TestPrerequisites(t *testing.T) {
	wf := &Workflow{
		Edges: map[id.DocumentTypeID][]id.DocumentTypeID{
			"a": {"b", "c"},
			"b": {"c"},
		},
	}
	assert.ElementsMatch(t, []id.DocumentTypeID{"a", "b"}, wf.Prerequisites("c"))
	assert.ElementsMatch(t, []id.DocumentTypeID{"a"}, wf.Prerequisites("b"))
	assert.Empty(t, wf.Prerequisites("a"))
}

func TestStepStateTerminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateSkipped.Terminal())
	assert.False(t, StateReady.Terminal())
	assert.False(t, StateAwaitingAuthority.Terminal())
}
