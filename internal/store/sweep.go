package store

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vincense/orderflow/pkg/models"
)

// The checkout sequence writes the header and the items as two separate
// writes with no transaction across them. A crash or failure between the two
// leaves a header with no items. The sweep makes that gap detectable instead
// of silent: it periodically reports headers past a grace window that still
// have no items, for manual reconciliation.

type SweepReport struct {
	Checked   int            `json:"checked"`
	Orphans   []models.Order `json:"orphans"`
	SweptAt   time.Time      `json:"swept_at"`
	GraceUsed time.Duration  `json:"grace_used"`
}

// OrphanedHeaders returns order headers older than grace with zero items.
// The grace window keeps an in-flight checkout's header from being flagged
// between its two phases.
func (s *Postgres) OrphanedHeaders(ctx context.Context, grace time.Duration) ([]models.Order, error) {
	cutoff := time.Now().Add(-grace)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+headerColumns+`
		FROM orders o
		WHERE o.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id)
		ORDER BY o.created_at
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orphans []models.Order
	for rows.Next() {
		order, err := scanHeader(rows)
		if err != nil {
			return nil, err
		}
		orphans = append(orphans, *order)
	}
	return orphans, rows.Err()
}

// Sweeper runs the orphaned-header scan on an interval.
type Sweeper struct {
	store    *Postgres
	logger   *logrus.Logger
	interval time.Duration
	grace    time.Duration
}

func NewSweeper(store *Postgres, interval, grace time.Duration, logger *logrus.Logger) *Sweeper {
	return &Sweeper{store: store, logger: logger, interval: interval, grace: grace}
}

// Run sweeps until ctx is cancelled. Each pass logs every orphan it finds;
// the store is never mutated, flagging is the whole job.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("Sweeper stopped")
			return
		case <-ticker.C:
			sw.sweep(ctx)
		}
	}
}

func (sw *Sweeper) sweep(ctx context.Context) {
	orphans, err := sw.store.OrphanedHeaders(ctx, sw.grace)
	if err != nil {
		sw.logger.WithError(err).Error("Orphan sweep failed")
		return
	}

	if len(orphans) == 0 {
		sw.logger.Debug("Orphan sweep clean")
		return
	}

	for _, o := range orphans {
		sw.logger.WithFields(logrus.Fields{
			"order_id":     o.ID,
			"customer":     o.CustomerName,
			"total_amount": o.TotalAmount.String(),
			"created_at":   o.CreatedAt,
		}).Warn("Orphaned order header: items write never completed")
	}
	sw.logger.WithField("orphan_count", len(orphans)).Warn("Orphan sweep found incomplete checkouts")
}
