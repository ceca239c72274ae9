// Package main provides the Pipewise API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/redis/go-redis/v9"

	"github.com/pipewise/pipewise/pkg/approval"
	"github.com/pipewise/pipewise/pkg/automation"
	"github.com/pipewise/pipewise/pkg/cmd"
	"github.com/pipewise/pipewise/pkg/eventbus"
	"github.com/pipewise/pipewise/pkg/macro"
	"github.com/pipewise/pipewise/pkg/models"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/registry"
	"github.com/pipewise/pipewise/pkg/rules"
	"github.com/pipewise/pipewise/pkg/services"
	"github.com/pipewise/pipewise/pkg/transition"
	"github.com/pipewise/pipewise/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	redisClient *redis.Client
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persist persistence.Persistence,
	reg *registry.Registry,
	eventBus eventbus.EventBus,
	redisClient *redis.Client,
) *API {
	return &API{
		logger:      logger,
		persistence: persist,
		registry:    reg,
		eventBus:    eventBus,
		redisClient: redisClient,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App(ctx context.Context) (*fiber.App, error) {
	ruleEngine := rules.NewEngine(a.logger)
	approvals := approval.NewService(a.logger, a.persistence, ruleEngine)
	executor := transition.NewExecutor(a.logger, a.persistence, ruleEngine, approvals, a.eventBus)
	approvals.SetCommitter(executor)

	collaborators := cmd.NewCollaborators(a.persistence, executor)
	engine := automation.NewEngine(a.logger, a.persistence, a.registry, collaborators)
	scheduler := automation.NewScheduler(a.logger, a.redisClient, engine, a.persistence)
	macroRunner := macro.NewRunner(a.logger, a.persistence, engine)

	dispatcher := automation.NewDispatcher(a.logger, engine, a.eventBus)

	err := dispatcher.Start(ctx)
	if err != nil {
		return nil, err
	}

	workflowService := services.NewWorkflow(a.persistence, a.registry)
	macroService := services.NewMacro(a.persistence, a.registry)

	handlers := web.NewAPIHandlers(
		executor,
		approvals,
		engine,
		scheduler,
		macroRunner,
		workflowService,
		macroService,
		a.persistence,
		a.validate,
		a.registry,
	)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Pipewise API")
	})

	crm := app.Group("/crm", web.RequireActor())
	crm.Post("/transition", handlers.ExecuteTransition, web.RequireCapability(models.CapTransitionExecute))
	crm.Get("/transition", handlers.ListTransitions)
	crm.Post("/stage-change", handlers.StageChange, web.RequireCapability(models.CapTransitionExecute))
	crm.Post("/check-transition", handlers.CheckTransition)
	crm.Get("/records/:id/history", handlers.RecordHistory)

	approvalsGroup := app.Group("/approvals", web.RequireActor())
	approvalsGroup.Get("/", handlers.ListApprovals)
	approvalsGroup.Post("/request", handlers.RequestApproval, web.RequireCapability(models.CapApprovalRequest))
	approvalsGroup.Post("/:id/resolve", handlers.ResolveApproval, web.RequireCapability(models.CapApprovalResolve))

	auto := app.Group("/automation", web.RequireActor())
	auto.Post("/run", handlers.RunWorkflow, web.RequireCapability(models.CapWorkflowRun))
	auto.Get("/run", handlers.TestWorkflow)
	auto.Get("/runs", handlers.ListRuns)
	auto.Get("/runs/:id", handlers.GetRun)
	auto.Post("/runs/:id/retry", handlers.RetryRun, web.RequireCapability(models.CapWorkflowRun))

	auto.Get("/workflows", handlers.ListWorkflows)
	auto.Post("/workflows", handlers.CreateWorkflow, web.RequireCapability(models.CapWorkflowManage))
	auto.Get("/workflows/:id", handlers.GetWorkflow)
	auto.Patch("/workflows/:id", handlers.UpdateWorkflow, web.RequireCapability(models.CapWorkflowManage))
	auto.Delete("/workflows/:id", handlers.DeleteWorkflow, web.RequireCapability(models.CapWorkflowManage))

	auto.Get("/macros", handlers.ListMacros)
	auto.Post("/macros", handlers.CreateMacro, web.RequireCapability(models.CapMacroManage))
	auto.Get("/macros/:id", handlers.GetMacro)
	auto.Patch("/macros/:id", handlers.UpdateMacro, web.RequireCapability(models.CapMacroManage))
	auto.Delete("/macros/:id", handlers.DeleteMacro, web.RequireCapability(models.CapMacroManage))
	auto.Post("/macros/:id/run", handlers.RunMacro, web.RequireCapability(models.CapMacroRun))

	app.Get("/health", handlers.HealthCheck)

	return app, nil
}

func (a *API) Start(ctx context.Context, port int) error {
	app, err := a.App(ctx)
	if err != nil {
		return err
	}

	return app.Listen(":" + strconv.Itoa(port))
}
