package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/pipewise/pipewise/pkg/approval"
	"github.com/pipewise/pipewise/pkg/automation"
	"github.com/pipewise/pipewise/pkg/cmd"
	"github.com/pipewise/pipewise/pkg/eventbus"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/registry"
	"github.com/pipewise/pipewise/pkg/rules"
	"github.com/pipewise/pipewise/pkg/transition"
)

// SchedulerService runs the due-schedule and delayed-retry poller plus the
// event dispatcher, so scheduled workflows fire even when no API instance
// is running.
type SchedulerService struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	redisClient *redis.Client

	scheduler *automation.Scheduler
}

func NewSchedulerService(
	id string,
	logger *slog.Logger,
	persist persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	redisClient *redis.Client,
) *SchedulerService {
	return &SchedulerService{
		id:          id,
		logger:      logger.With("module", "scheduler", "scheduler_id", id),
		persistence: persist,
		registry:    reg,
		eventBus:    eventBus,
		redisClient: redisClient,
	}
}

// Start wires the execution stack and blocks until a shutdown signal.
func (s *SchedulerService) Start(ctx context.Context) error {
	sCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ruleEngine := rules.NewEngine(s.logger)
	approvals := approval.NewService(s.logger, s.persistence, ruleEngine)
	executor := transition.NewExecutor(s.logger, s.persistence, ruleEngine, approvals, s.eventBus)
	approvals.SetCommitter(executor)

	collaborators := cmd.NewCollaborators(s.persistence, executor)
	engine := automation.NewEngine(s.logger, s.persistence, s.registry, collaborators)

	dispatcher := automation.NewDispatcher(s.logger, engine, s.eventBus)

	err := dispatcher.Start(sCtx)
	if err != nil {
		return err
	}

	s.scheduler = automation.NewScheduler(s.logger, s.redisClient, engine, s.persistence)
	s.scheduler.Start(sCtx)

	s.logger.InfoContext(sCtx, "Scheduler started")

	s.handleSignals(cancel)
	<-sCtx.Done()

	return nil
}

func (s *SchedulerService) handleSignals(cancel context.CancelFunc) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		s.logger.Info("Received signal, shutting down gracefully", "signal", sig)
		s.scheduler.Stop()
		cancel()
	}()
}
