package jobs

import (
	"context"

	"github.com/Spok95/academy-tuition/internal/billing"
)

// Reconciler: то, что умеет сверять суммы начислений с занятиями.
type Reconciler interface {
	Reconcile(ctx context.Context) (billing.ReconcileReport, error)
}

// ReconcileJob оборачивает сверку в Job для Runner.
func ReconcileJob(r Reconciler) Job {
	return func(ctx context.Context) error {
		_, err := r.Reconcile(ctx)
		return err
	}
}
