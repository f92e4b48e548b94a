package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-ledger/ledger"
	"github.com/warp/budget-ledger/ledger/store"
)

func TestInvariantAuditor_CheckOnce(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := ledger.NewService(mem, mem, nil)
	h := NewHandler(svc)
	_, err := h.LoadScenarioByID(ctx, "short-film", ScenarioActor)
	require.NoError(t, err)

	auditor := NewInvariantAuditor(svc, nil)

	// GIVEN: a healthy store
	report, err := auditor.CheckOnce(ctx)
	require.NoError(t, err)
	assert.True(t, report.Healthy())
	assert.Equal(t, 1, report.Checked)

	// WHEN: a budget is corrupted behind the ledger's back
	b, err := mem.Get(ctx, "short-film")
	require.NoError(t, err)
	b.AllocatedBudget = ledger.MoneyFromInt(1)
	b.Categories[0].Remaining = ledger.MoneyFromInt(0)
	_, err = mem.Save(ctx, b, b.Version)
	require.NoError(t, err)

	report, err = auditor.CheckOnce(ctx)

	// THEN: both broken rules are reported for that budget
	require.NoError(t, err)
	assert.False(t, report.Healthy())
	rules := []string{}
	for _, v := range report.Violations["short-film"] {
		rules = append(rules, v.Rule)
	}
	assert.ElementsMatch(t, []string{"allocation_sum", "category_remaining"}, rules)

	last, ok := auditor.LastReport()
	require.True(t, ok)
	assert.Equal(t, report.At, last.At)
}

func TestInvariantAuditor_Run(t *testing.T) {
	mem := store.NewMemory()
	auditor := NewInvariantAuditor(ledger.NewService(mem, mem, nil), nil)
	auditor.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- auditor.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, ok := auditor.LastReport()
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("auditor did not stop")
	}
}

func TestInvariantAuditor_Disabled(t *testing.T) {
	mem := store.NewMemory()
	auditor := NewInvariantAuditor(ledger.NewService(mem, mem, nil), nil)
	auditor.Interval = 0

	assert.NoError(t, auditor.Run(context.Background()))
	_, ok := auditor.LastReport()
	assert.False(t, ok)
}
