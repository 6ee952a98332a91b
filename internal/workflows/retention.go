package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RetentionInput is the input for the retention workflow.
type RetentionInput struct {
	Keys []string
}

// RetentionResult lists the kept record count per pruned key and the keys that failed.
type RetentionResult struct {
	Kept   map[string]int
	Failed []string
}

// HistoryRetentionWorkflow prunes every history key in turn. A key that keeps
// failing after retries is reported in Failed and does not stop the others.
func HistoryRetentionWorkflow(ctx workflow.Context, input RetentionInput) (RetentionResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting history retention", "keys", len(input.Keys))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	result := RetentionResult{Kept: make(map[string]int, len(input.Keys))}
	for _, key := range input.Keys {
		var pruned PruneResult
		if err := workflow.ExecuteActivity(ctx, "PruneHistory", key).Get(ctx, &pruned); err != nil {
			logger.Warn("prune failed", "key", key, "error", err)
			result.Failed = append(result.Failed, key)
			continue
		}
		result.Kept[key] = pruned.Kept
	}

	logger.Info("History retention finished", "pruned", len(result.Kept), "failed", len(result.Failed))
	return result, nil
}
