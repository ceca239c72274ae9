package automation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pipewise/pipewise/pkg/eventbus"
	"github.com/pipewise/pipewise/pkg/events"
	"github.com/pipewise/pipewise/pkg/models"
)

// Dispatcher subscribes to committed record events and feeds them to the
// engine. It sits on the consuming side of the post-commit fire-and-forget
// boundary: handler errors are logged and dropped, never propagated back to
// the request that committed the change.
type Dispatcher struct {
	logger *slog.Logger
	engine *Engine
	bus    eventbus.EventBus
}

func NewDispatcher(logger *slog.Logger, engine *Engine, bus eventbus.EventBus) *Dispatcher {
	return &Dispatcher{
		logger: logger.With("module", "dispatcher"),
		engine: engine,
		bus:    bus,
	}
}

// Start registers the event handlers and begins consuming.
func (d *Dispatcher) Start(ctx context.Context) error {
	err := d.bus.Handle(events.RecordStageChangedEvent, d.handleStageChanged)
	if err != nil {
		return err
	}

	err = d.bus.Handle(events.RecordCreatedEvent, d.handleCreated)
	if err != nil {
		return err
	}

	err = d.bus.Handle(events.RecordUpdatedEvent, d.handleUpdated)
	if err != nil {
		return err
	}

	return d.bus.Subscribe(ctx)
}

func (d *Dispatcher) handleStageChanged(ctx context.Context, raw any) error {
	event, ok := raw.(*events.RecordStageChanged)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", raw)
	}

	d.dispatch(ctx, MatchInput{
		OrgID:    event.OrgID,
		ModuleID: event.ModuleID,
		Record:   event.Record,
		Previous: event.Previous,
		Trigger:  models.TriggerOnStageChange,
		ActorID:  event.ActorID,
	})

	return nil
}

func (d *Dispatcher) handleCreated(ctx context.Context, raw any) error {
	event, ok := raw.(*events.RecordCreated)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", raw)
	}

	d.dispatch(ctx, MatchInput{
		OrgID:    event.OrgID,
		ModuleID: event.ModuleID,
		Record:   event.Record,
		Trigger:  models.TriggerOnCreate,
		ActorID:  event.ActorID,
	})

	return nil
}

func (d *Dispatcher) handleUpdated(ctx context.Context, raw any) error {
	event, ok := raw.(*events.RecordUpdated)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", raw)
	}

	d.dispatch(ctx, MatchInput{
		OrgID:    event.OrgID,
		ModuleID: event.ModuleID,
		Record:   event.Record,
		Previous: event.Previous,
		Trigger:  models.TriggerOnUpdate,
		ActorID:  event.ActorID,
	})

	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, input MatchInput) {
	runs, err := d.engine.ExecuteMatching(ctx, input)
	if err != nil {
		d.logger.ErrorContext(ctx, "Automation dispatch failed",
			"trigger", input.Trigger, "record_id", recordID(input.Record), "error", err)

		return
	}

	if len(runs) > 0 {
		d.logger.InfoContext(ctx, "Automation dispatched",
			"trigger", input.Trigger, "record_id", recordID(input.Record), "runs", len(runs))
	}
}

func recordID(record *models.Record) string {
	if record == nil {
		return ""
	}

	return record.ID
}
