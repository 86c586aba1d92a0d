package worker

import (
	"context"
	"errors"
	"fmt"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/log"
	"conti/internal/store"
)

// PlanSource computes settlement plans for a room.
type PlanSource interface {
	Plan(ctx context.Context, scope string) (core.Plan, error)
	Plans(ctx context.Context) ([]core.Plan, error)
	MemberNames(ctx context.Context) (map[string]string, error)
}

// PlanWorker keeps exported settlement plans in step with the ledger.
type PlanWorker struct {
	roomID   string
	source   PlanSource
	exporter store.PlanExporter
	logger   *log.Logger
}

func NewPlanWorker(roomID string, source PlanSource, exporter store.PlanExporter) *PlanWorker {
	return &PlanWorker{
		roomID:   roomID,
		source:   source,
		exporter: exporter,
		logger:   log.ForComponent(log.ComponentWorker),
	}
}

// HandleEvent recomputes and exports the plan of the event's group and the
// plan of the whole room. Events for other rooms are ignored.
func (w *PlanWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEvent) error {
	if msg.RoomID != w.roomID {
		w.logger.DebugContext(ctx, "Ignoring event for another room",
			log.FieldRoomID, msg.RoomID,
			log.FieldTransactionID, msg.TransactionID)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing transaction event",
		log.FieldTransactionID, msg.TransactionID,
		log.FieldGroupID, msg.GroupID,
		log.FieldTxKind, msg.Kind,
		"action", msg.Action)

	scopes := []string{core.ScopeAll}
	if msg.GroupID != "" && msg.GroupID != core.ScopeAll {
		scopes = append(scopes, msg.GroupID)
	}

	var plans []core.Plan
	for _, scope := range scopes {
		plan, err := w.source.Plan(ctx, scope)
		if errors.Is(err, core.ErrUnknownGroup) {
			// The group was deleted after the event was published.
			w.logger.InfoContext(ctx, "Skipping plan for missing group", log.FieldScope, scope)
			continue
		}
		if err != nil {
			return fmt.Errorf("compute plan %s: %w", scope, err)
		}
		plans = append(plans, plan)
	}

	return w.export(ctx, plans)
}

// RefreshAll recomputes and exports the plan of every scope in the room.
func (w *PlanWorker) RefreshAll(ctx context.Context) error {
	plans, err := w.source.Plans(ctx)
	if err != nil {
		return fmt.Errorf("compute plans: %w", err)
	}
	if err := w.export(ctx, plans); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Refreshed settlement plans", "count", len(plans))
	return nil
}

func (w *PlanWorker) export(ctx context.Context, plans []core.Plan) error {
	if w.exporter == nil {
		w.logger.DebugContext(ctx, "No plan exporter configured, skipping export", "plans", len(plans))
		return nil
	}
	if len(plans) == 0 {
		return nil
	}

	names, err := w.source.MemberNames(ctx)
	if err != nil {
		return fmt.Errorf("load member names: %w", err)
	}

	for _, plan := range plans {
		if err := w.exporter.ExportPlan(ctx, plan, names); err != nil {
			return fmt.Errorf("export plan %s: %w", plan.Scope, err)
		}
		w.logger.DebugContext(ctx, "Exported plan",
			log.FieldOperation, log.OpExport,
			log.FieldScope, plan.Scope,
			log.FieldInstructions, len(plan.Instructions))
	}
	return nil
}
