package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/activity-log-api/pkg/jobs"
)

// JobTypePruneEvents identifies retention jobs.
const JobTypePruneEvents = "events.prune"

type eventPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventRetention deletes events older than the configured retention window.
type EventRetention struct {
	store     eventPruner
	retention time.Duration
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEventRetention constructs an EventRetention keeping retentionDays of history.
func NewEventRetention(store eventPruner, retentionDays int, metrics *MetricsService, logger *zap.Logger) *EventRetention {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventRetention{
		store:     store,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		metrics:   metrics,
		logger:    logger,
	}
}

// Job builds the prune job for a run at now.
func (r *EventRetention) Job(now time.Time) jobs.Job {
	cutoff := now.Add(-r.retention)
	return jobs.Job{
		ID:      fmt.Sprintf("%s:%d", JobTypePruneEvents, now.Unix()),
		Type:    JobTypePruneEvents,
		Payload: cutoff,
	}
}

// Handle runs a prune job.
func (r *EventRetention) Handle(ctx context.Context, job jobs.Job) error {
	cutoff, ok := job.Payload.(time.Time)
	if !ok {
		return fmt.Errorf("prune job %s: unexpected payload %T", job.ID, job.Payload)
	}

	deleted, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	r.metrics.EventsDeleted(deleted)
	r.logger.Info("events pruned", zap.Time("cutoff", cutoff), zap.Int64("deleted", deleted))
	return nil
}
