// Package scheduler runs the collection and analysis jobs on a fixed
// interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"housing-radar/internal/common/logger"
)

// Pipeline is the collect-then-analyze cycle the scheduler drives.
type Pipeline interface {
	Collect(ctx context.Context) error
	Analyze(ctx context.Context) error
}

// Scheduler triggers the pipeline once per interval. A cycle that is still
// running when the next tick fires is not overlapped.
type Scheduler struct {
	pipeline Pipeline
	logger   logger.Logger
	interval time.Duration

	mu       sync.Mutex
	isActive bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func New(pipeline Pipeline, interval time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{
		pipeline: pipeline,
		interval: interval,
		logger:   log.WithFields(map[string]interface{}{"component": "scheduler"}),
	}
}

// Start launches the tick loop and runs one cycle immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.RunCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// Stop halts the tick loop and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
}

// RunCycle executes one collect-then-analyze cycle. Concurrent invocations
// are coalesced: if a cycle is already running the call is a no-op.
func (s *Scheduler) RunCycle(ctx context.Context) {
	s.mu.Lock()
	if s.isActive {
		s.mu.Unlock()
		s.logger.Warn("skipping cycle, previous run still active", nil)
		return
	}
	s.isActive = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isActive = false
		s.mu.Unlock()
	}()

	if err := s.pipeline.Collect(ctx); err != nil {
		s.logger.WithError(err).Error("collection cycle failed", nil)
	}
	if err := s.pipeline.Analyze(ctx); err != nil {
		s.logger.WithError(err).Error("analysis cycle failed", nil)
	}
}
