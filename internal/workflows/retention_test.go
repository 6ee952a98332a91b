package workflows_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/geoanchor/internal/adapters/memory"
	"github.com/samirrijal/geoanchor/internal/core/domain"
	"github.com/samirrijal/geoanchor/internal/core/usecases"
	"github.com/samirrijal/geoanchor/internal/workflows"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type failingStore struct{ *memory.Store }

func (failingStore) GetString(ctx context.Context, key string) (string, bool, error) {
	return "", false, errors.New("backend down")
}

func seed(t *testing.T, store *memory.Store, key string, times ...time.Time) {
	t.Helper()
	records := make([]domain.AnchorRecord, 0, len(times))
	for _, ts := range times {
		records = append(records, domain.AnchorRecord{Latitude: 43.26, Longitude: -2.93, CreatedAt: ts})
	}
	blob, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, store.SetString(context.Background(), key, string(blob)))
}

func TestHistoryRetentionWorkflow(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	store := memory.New()
	seed(t, store, "device-a",
		now.Add(-time.Hour), now.Add(-2*time.Hour), now.Add(-3*time.Hour),
		now.Add(-4*time.Hour), now.Add(-5*time.Hour), now.Add(-6*time.Hour),
		now.Add(-7*time.Hour))
	seed(t, store, "device-b", now.Add(-30*time.Minute), now.Add(-36*time.Hour))

	env.RegisterWorkflow(workflows.HistoryRetentionWorkflow)
	env.RegisterActivity(&workflows.RetentionActivities{
		Store:   store,
		Clock:   fixedClock{now: now},
		History: usecases.DefaultHistoryConfig(),
	})

	env.ExecuteWorkflow(workflows.HistoryRetentionWorkflow, workflows.RetentionInput{
		Keys: []string{"device-a", "device-b", "device-c"},
	})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.RetentionResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, map[string]int{"device-a": 5, "device-b": 1, "device-c": 0}, result.Kept)
	assert.Empty(t, result.Failed)

	blob, ok, err := store.GetString(context.Background(), "device-b")
	require.NoError(t, err)
	require.True(t, ok)
	var kept []domain.AnchorRecord
	require.NoError(t, json.Unmarshal([]byte(blob), &kept))
	require.Len(t, kept, 1)
	assert.True(t, kept[0].CreatedAt.Equal(now.Add(-30*time.Minute)))
}

func TestHistoryRetentionWorkflow_FailedKey(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	env.RegisterWorkflow(workflows.HistoryRetentionWorkflow)
	env.RegisterActivity(&workflows.RetentionActivities{
		Store:   failingStore{memory.New()},
		Clock:   fixedClock{now: time.Now()},
		History: usecases.DefaultHistoryConfig(),
	})

	env.ExecuteWorkflow(workflows.HistoryRetentionWorkflow, workflows.RetentionInput{Keys: []string{"device-a"}})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result workflows.RetentionResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, []string{"device-a"}, result.Failed)
	assert.Empty(t, result.Kept)
}
