package worker

import (
	"context"
	"time"

	"ingestion-portal/internal/config"
	"ingestion-portal/internal/logger"
	"ingestion-portal/internal/upload"
)

type SchemaRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

type UploadMaintainer interface {
	SweepTimeouts(ctx context.Context, now time.Time) (int64, error)
	Reconcile(ctx context.Context, now time.Time) (upload.ReconcileResult, error)
}

// PortalTasks returns the periodic jobs of the portal with their configured intervals.
func PortalTasks(cfg config.ScheduleWorkerConfig, schemas SchemaRefresher, uploads UploadMaintainer) []Task {
	log := logger.Component("scheduler")

	return []Task{
		{
			Name:     "refresh-schemas",
			Interval: cfg.SchemaRefreshInterval,
			Run: func(ctx context.Context) error {
				n, err := schemas.Refresh(ctx)
				if err == nil {
					log.Info().Int("schemas", n).Msg("Schema cache refreshed")
				}
				return err
			},
		},
		{
			Name:     "sweep-upload-timeouts",
			Interval: cfg.TimeoutSweepInterval,
			Run: func(ctx context.Context) error {
				n, err := uploads.SweepTimeouts(ctx, time.Now())
				if err == nil && n > 0 {
					log.Info().Int64("uploads", n).Msg("Uploads marked as timed out")
				}
				return err
			},
		},
		{
			Name:     "reconcile-uploads",
			Interval: cfg.ReconcileInterval,
			Run: func(ctx context.Context) error {
				res, err := uploads.Reconcile(ctx, time.Now())
				if res.Promoted > 0 || res.Removed > 0 {
					log.Info().Int("promoted", res.Promoted).Int("removed", res.Removed).Msg("Pending uploads reconciled")
				}
				return err
			},
		},
	}
}
