package poll

import (
	"context"

	"github.com/netopshub/netopshub/internal/logging"
	"github.com/netopshub/netopshub/pkg/model"
	"github.com/robfig/cron/v3"
)

// DefaultSchedule is the cron expression used when the CLI and server do
// not override the poll interval.
const DefaultSchedule = "@every 30s"

// Scheduler fires PollAll on a cron expression and forwards each batch
// to a sink, decoupling collection cadence from whatever consumes the
// resulting metrics (the unified collector, a direct ingest pipeline).
type Scheduler struct {
	collector *Collector
	cron      *cron.Cron
	sink      func([]model.Metric)
	log       *logging.Logger
}

// NewScheduler creates a Scheduler that calls sink with every PollAll
// result as it fires.
func NewScheduler(collector *Collector, sink func([]model.Metric), log *logging.Logger) *Scheduler {
	return &Scheduler{
		collector: collector,
		cron:      cron.New(),
		sink:      sink,
		log:       log,
	}
}

// Start registers the polling job on schedule (DefaultSchedule when
// empty) and begins running it in the background.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	_, err := s.cron.AddFunc(schedule, func() {
		metrics := s.collector.PollAll(ctx)
		if s.log != nil {
			s.log.WithFields(map[string]interface{}{"count": len(metrics)}).Debug("poll cycle complete")
		}
		if s.sink != nil && len(metrics) > 0 {
			s.sink(metrics)
		}
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
