package jobs

import (
	"context"
	"time"

	"github.com/athathco/athath-backend/internal/orders"
	"github.com/athathco/athath-backend/pkg/logger"
)

// PaymentReconcileJob sweeps payments stuck in pending or authorized and
// settles them against the gateway's view.
type PaymentReconcileJob struct {
	service   *orders.Service
	logg      *logger.Logger
	olderThan time.Duration
	batchSize int
}

// NewPaymentReconcileJob builds the reconciliation job.
func NewPaymentReconcileJob(service *orders.Service, logg *logger.Logger, olderThan time.Duration, batchSize int) *PaymentReconcileJob {
	if olderThan <= 0 {
		olderThan = 10 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &PaymentReconcileJob{
		service:   service,
		logg:      logg,
		olderThan: olderThan,
		batchSize: batchSize,
	}
}

// Name implements cron.Job.
func (j *PaymentReconcileJob) Name() string { return "payment_reconcile" }

// Run implements cron.Job.
func (j *PaymentReconcileJob) Run(ctx context.Context) error {
	settled, err := j.service.ReconcilePendingPayments(ctx, j.olderThan, j.batchSize)
	if err != nil {
		return err
	}
	ctx = j.logg.WithField(ctx, "settled", settled)
	j.logg.Info(ctx, "payment reconciliation pass complete")
	return nil
}
