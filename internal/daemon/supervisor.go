// Package daemon runs the background loops of the kioskd host.
package daemon

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/kioskd/internal/domain"
)

// HeartbeatRecorder observes heartbeat outcomes (metrics).
type HeartbeatRecorder interface {
	RecordHeartbeat(err error)
}

// SupervisorConfig holds supervisor loop configuration.
type SupervisorConfig struct {
	PruneInterval     time.Duration // How often to poll managed app liveness
	HeartbeatInterval time.Duration // How often to report to the backend (0 disables)
}

// DefaultSupervisorConfig returns default supervisor configuration.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		PruneInterval:     5 * time.Second,
		HeartbeatInterval: 60 * time.Second,
	}
}

// Supervisor drives the engine's periodic work.
// Managed-app exits are only noticed by polling, so it prunes on a ticker.
// It also sends device heartbeats, never more than one in flight.
type Supervisor struct {
	config    SupervisorConfig
	engine    domain.KioskEngine
	heartbeat domain.HeartbeatSender
	recorder  HeartbeatRecorder
	logger    *zap.Logger

	inFlight atomic.Bool
	wg       sync.WaitGroup
}

// NewSupervisor creates a supervisor. heartbeat and recorder may be nil.
func NewSupervisor(
	config SupervisorConfig,
	engine domain.KioskEngine,
	heartbeat domain.HeartbeatSender,
	recorder HeartbeatRecorder,
	logger *zap.Logger,
) *Supervisor {
	return &Supervisor{
		config:    config,
		engine:    engine,
		heartbeat: heartbeat,
		recorder:  recorder,
		logger:    logger,
	}
}

// Run starts the supervisor loop.
// This blocks until context is canceled, then releases the keyboard hook.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("supervisor started",
		zap.Duration("prune_interval", s.config.PruneInterval),
		zap.Duration("heartbeat_interval", s.config.HeartbeatInterval))

	pruneTicker := time.NewTicker(s.config.PruneInterval)
	defer pruneTicker.Stop()

	var heartbeatC <-chan time.Time
	if s.heartbeat != nil && s.config.HeartbeatInterval > 0 {
		heartbeatTicker := time.NewTicker(s.config.HeartbeatInterval)
		defer heartbeatTicker.Stop()
		heartbeatC = heartbeatTicker.C

		// Report online right away
		s.triggerHeartbeat(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("supervisor stopping")
			s.wg.Wait()
			if err := s.engine.Close(); err != nil {
				s.logger.Warn("failed to release keyboard hook", zap.Error(err))
			}
			return ctx.Err()

		case <-pruneTicker.C:
			s.prune(ctx)

		case <-heartbeatC:
			s.triggerHeartbeat(ctx)
		}
	}
}

func (s *Supervisor) prune(ctx context.Context) {
	msg, err := s.engine.PruneDeadManagedApps(ctx)
	if err != nil {
		s.logger.Warn("prune failed", zap.Error(err))
		return
	}
	s.logger.Debug("prune completed", zap.String("result", msg))
}

// triggerHeartbeat sends one heartbeat unless the previous one is still running.
func (s *Supervisor) triggerHeartbeat(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.logger.Debug("heartbeat still in flight, skipping tick")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)

		_, err := s.heartbeat.Send(ctx)
		if s.recorder != nil {
			s.recorder.RecordHeartbeat(err)
		}

		switch {
		case err == nil:
			s.logger.Debug("heartbeat sent")
		case errors.Is(err, domain.ErrNotRegistered):
			s.logger.Debug("heartbeat skipped, device not registered")
		case errors.Is(err, context.Canceled):
		default:
			s.logger.Warn("heartbeat failed", zap.Error(err))
		}
	}()
}
