package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"conti/internal/amqp"
	"conti/internal/cache"
	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/settle"
	"conti/internal/store"
)

// EventPublisher announces transaction changes to other processes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, msg *amqp.TransactionEvent) error
}

// ExpenseInput is a new expense as entered by a user.
type ExpenseInput struct {
	Title    string
	Amount   float64
	PayerID  string
	SharedBy []string
	GroupID  string
	Date     time.Time
}

// RoomService runs the room's use cases on top of a repository. Every write
// bumps a generation counter so cached plans from before the write are
// never served again.
type RoomService struct {
	roomID    string
	repo      store.Repository
	publisher EventPublisher
	plans     *cache.LRU[core.Plan]
	now       func() time.Time
	logger    *log.Logger

	generation atomic.Uint64
}

// NewRoomService wires the service. publisher and plans may be nil.
func NewRoomService(roomID string, repo store.Repository, publisher EventPublisher, plans *cache.LRU[core.Plan]) *RoomService {
	return &RoomService{
		roomID:    roomID,
		repo:      repo,
		publisher: publisher,
		plans:     plans,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    log.ForComponent(log.ComponentServices),
	}
}

func (s *RoomService) RoomID() string { return s.roomID }

// Members returns the roster in the order members were added.
func (s *RoomService) Members(ctx context.Context) ([]core.Member, error) {
	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (s *RoomService) AddMember(ctx context.Context, name string) (core.Member, error) {
	m, err := s.repo.AddMember(ctx, core.Member{Name: name})
	if err != nil {
		return core.Member{}, fmt.Errorf("add member: %w", err)
	}
	s.invalidate()
	s.logger.InfoContext(ctx, "Member added", log.FieldMemberID, m.ID, log.FieldRoomID, s.roomID)
	return m, nil
}

// RemoveMember deletes a member that no transaction mentions. Members still
// present in history return core.ErrMemberInUse.
func (s *RoomService) RemoveMember(ctx context.Context, id string) error {
	used, err := s.repo.MemberReferenced(ctx, id)
	if err != nil {
		return fmt.Errorf("check member references: %w", err)
	}
	if used {
		return core.ErrMemberInUse
	}
	if err := s.repo.DeleteMember(ctx, id); err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	s.invalidate()
	s.logger.InfoContext(ctx, "Member removed", log.FieldMemberID, id, log.FieldRoomID, s.roomID)
	return nil
}

// Groups returns the general group followed by the stored groups.
func (s *RoomService) Groups(ctx context.Context) ([]core.Group, error) {
	stored, err := s.repo.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	out := []core.Group{{ID: core.GeneralGroupID, Name: core.GeneralGroupName}}
	for _, g := range stored {
		if g.ID != core.GeneralGroupID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *RoomService) CreateGroup(ctx context.Context, name string) (core.Group, error) {
	g, err := s.repo.AddGroup(ctx, core.Group{Name: name})
	if err != nil {
		return core.Group{}, fmt.Errorf("add group: %w", err)
	}
	s.invalidate()
	s.logger.InfoContext(ctx, "Group created", log.FieldGroupID, g.ID, log.FieldRoomID, s.roomID)
	return g, nil
}

// DeleteGroup removes a group and all of its transactions.
func (s *RoomService) DeleteGroup(ctx context.Context, id string) error {
	if id == core.GeneralGroupID {
		return core.ErrGeneralGroup
	}
	if err := s.repo.DeleteGroup(ctx, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	s.invalidate()
	s.publish(ctx, id, "", "", amqp.ActionDeleted)
	s.logger.InfoContext(ctx, "Group deleted", log.FieldGroupID, id, log.FieldRoomID, s.roomID)
	return nil
}

// Transactions returns the scope's transactions in recording order.
func (s *RoomService) Transactions(ctx context.Context, scope string) ([]core.Transaction, error) {
	if err := s.checkScope(ctx, scope); err != nil {
		return nil, err
	}
	txs, err := s.repo.ListTransactions(ctx, normalizeScope(scope))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// AddExpense records an expense after checking that every member it names
// is on the roster. Repeated sharers count once.
func (s *RoomService) AddExpense(ctx context.Context, in ExpenseInput) (core.Transaction, error) {
	groupID := in.GroupID
	if groupID == "" || groupID == core.ScopeAll {
		groupID = core.GeneralGroupID
	}
	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	tx := core.Transaction{
		Title:    in.Title,
		Amount:   in.Amount,
		PayerID:  in.PayerID,
		SharedBy: dedupe(in.SharedBy),
		Date:     date,
		Kind:     core.KindExpense,
		GroupID:  groupID,
	}
	return s.record(ctx, tx)
}

// RecordSettlement records a direct payment from payer to receiver. A
// settlement made while viewing every group lands in the general group.
func (s *RoomService) RecordSettlement(ctx context.Context, groupID, payerID, receiverID string, amount float64) (core.Transaction, error) {
	if groupID == "" || groupID == core.ScopeAll {
		groupID = core.GeneralGroupID
	}
	tx := core.Transaction{
		Title:    core.SettlementTitle,
		Amount:   amount,
		PayerID:  payerID,
		SharedBy: []string{receiverID},
		Date:     s.now(),
		Kind:     core.KindSettlement,
		GroupID:  groupID,
	}
	return s.record(ctx, tx)
}

func (s *RoomService) record(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkReferences(ctx, tx); err != nil {
		return core.Transaction{}, err
	}
	saved, err := s.repo.AddTransactions(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate()

	t := saved[0]
	s.logger.InfoContext(ctx, "Transaction recorded",
		log.NewFields().WithTransaction(t.ID, string(t.Kind), t.GroupID, t.Amount).ToSlice()...)
	s.publish(ctx, t.GroupID, t.ID, string(t.Kind), amqp.ActionCreated)
	return t, nil
}

func (s *RoomService) DeleteTransaction(ctx context.Context, id string) error {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if err := s.repo.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.invalidate()
	s.publish(ctx, tx.GroupID, tx.ID, string(tx.EffectiveKind()), amqp.ActionDeleted)
	return nil
}

// Balances returns the scope's balances in roster order.
func (s *RoomService) Balances(ctx context.Context, scope string) ([]core.Balance, error) {
	plan, err := s.Plan(ctx, scope)
	if err != nil {
		return nil, err
	}
	return plan.Balances, nil
}

// Plan computes balances and suggested transfers for scope. Results are
// cached until the next write; callers get their own copy.
func (s *RoomService) Plan(ctx context.Context, scope string) (core.Plan, error) {
	scope = normalizeScope(scope)
	name, err := s.scopeName(ctx, scope)
	if err != nil {
		return core.Plan{}, err
	}

	key := strconv.FormatUint(s.generation.Load(), 10) + ":" + scope
	if s.plans != nil {
		if p, ok := s.plans.Get(key); ok {
			return clonePlan(p), nil
		}
	}

	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return core.Plan{}, fmt.Errorf("list members: %w", err)
	}
	txs, err := s.repo.ListTransactions(ctx, scope)
	if err != nil {
		return core.Plan{}, fmt.Errorf("list transactions: %w", err)
	}

	balances := ledger.ComputeOrdered(core.MemberIDs(members), txs)
	plan := core.Plan{
		Scope:        scope,
		Name:         name,
		Balances:     balances,
		Instructions: settle.Compute(balances),
		ComputedAt:   s.now(),
	}
	s.logger.DebugContext(ctx, "Plan computed",
		log.FieldScope, scope,
		"members", len(members),
		"transactions", len(txs),
		log.FieldInstructions, len(plan.Instructions))

	if s.plans != nil {
		s.plans.Set(key, clonePlan(plan))
	}
	return plan, nil
}

// Plans computes the plan for every group plus the all scope, concurrently.
// The all scope comes first, then groups in Groups order.
func (s *RoomService) Plans(ctx context.Context) ([]core.Plan, error) {
	groups, err := s.Groups(ctx)
	if err != nil {
		return nil, err
	}
	scopes := []string{core.ScopeAll}
	for _, g := range groups {
		scopes = append(scopes, g.ID)
	}

	plans := make([]core.Plan, len(scopes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, scope := range scopes {
		g.Go(func() error {
			p, err := s.Plan(gctx, scope)
			if err != nil {
				return fmt.Errorf("plan %s: %w", scope, err)
			}
			plans[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

// SettleAll records every suggested transfer of scope as a settlement and
// returns the recorded transactions.
func (s *RoomService) SettleAll(ctx context.Context, scope string) ([]core.Transaction, error) {
	plan, err := s.Plan(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(plan.Instructions) == 0 {
		return nil, nil
	}

	groupID := plan.Scope
	if groupID == core.ScopeAll {
		groupID = core.GeneralGroupID
	}
	saved, err := s.repo.AddTransactions(ctx, settle.AsTransactions(groupID, plan.Instructions, s.now())...)
	if err != nil {
		return nil, fmt.Errorf("save settlements: %w", err)
	}
	s.invalidate()

	s.logger.InfoContext(ctx, "Plan settled",
		log.FieldScope, plan.Scope,
		log.FieldInstructions, len(saved),
		log.FieldAmount, settle.Total(plan.Instructions))
	for _, t := range saved {
		s.publish(ctx, t.GroupID, t.ID, string(t.Kind), amqp.ActionCreated)
	}
	return saved, nil
}

// Report summarizes spending for year, or year/month when month is 1-12.
func (s *RoomService) Report(ctx context.Context, year, month int) (core.Report, error) {
	if month < 0 || month > 12 {
		return core.Report{}, fmt.Errorf("%w: %d", core.ErrInvalidMonth, month)
	}
	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return core.Report{}, fmt.Errorf("list members: %w", err)
	}
	groups, err := s.Groups(ctx)
	if err != nil {
		return core.Report{}, err
	}
	txs, err := s.repo.ListTransactions(ctx, core.ScopeAll)
	if err != nil {
		return core.Report{}, fmt.Errorf("list transactions: %w", err)
	}
	return ledger.BuildReport(year, month, txs, members, groups), nil
}

// MemberNames maps member IDs to display names.
func (s *RoomService) MemberNames(ctx context.Context) (map[string]string, error) {
	members, err := s.Members(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	return names, nil
}

func (s *RoomService) checkReferences(ctx context.Context, tx core.Transaction) error {
	if err := s.checkScope(ctx, tx.GroupID); err != nil {
		return err
	}
	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	known := make(map[string]struct{}, len(members))
	for _, m := range members {
		known[m.ID] = struct{}{}
	}
	for _, id := range append([]string{tx.PayerID}, tx.SharedBy...) {
		if _, ok := known[id]; !ok {
			return fmt.Errorf("%w: %s", core.ErrUnknownMember, id)
		}
	}
	return nil
}

func (s *RoomService) checkScope(ctx context.Context, scope string) error {
	_, err := s.scopeName(ctx, scope)
	return err
}

// scopeName resolves a scope to its display name. Scopes other than all and
// general must name a stored group.
func (s *RoomService) scopeName(ctx context.Context, scope string) (string, error) {
	switch scope = normalizeScope(scope); scope {
	case core.ScopeAll:
		return core.AllGroupsName, nil
	case core.GeneralGroupID:
		return core.GeneralGroupName, nil
	}
	groups, err := s.Groups(ctx)
	if err != nil {
		return "", err
	}
	i := slices.IndexFunc(groups, func(g core.Group) bool { return g.ID == scope })
	if i < 0 {
		return "", fmt.Errorf("%w: %s", core.ErrUnknownGroup, scope)
	}
	return groups[i].Name, nil
}

func (s *RoomService) invalidate() {
	s.generation.Add(1)
	if s.plans != nil {
		s.plans.Purge()
	}
}

func (s *RoomService) publish(ctx context.Context, groupID, txID, kind, action string) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewTransactionEvent(s.roomID, groupID, txID, kind, action)
	if err := s.publisher.PublishTransactionEvent(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			log.FieldOperation, log.OpPublish,
			log.FieldError, err,
			log.FieldGroupID, groupID,
			log.FieldTransactionID, txID)
	}
}

func normalizeScope(scope string) string {
	if scope == "" {
		return core.ScopeAll
	}
	return scope
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func clonePlan(p core.Plan) core.Plan {
	p.Balances = slices.Clone(p.Balances)
	p.Instructions = slices.Clone(p.Instructions)
	return p
}

// IsValidationError reports whether err comes from bad input rather than a
// storage failure.
func IsValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount, core.ErrEmptyTitle, core.ErrEmptyName, core.ErrEmptyPayer,
		core.ErrTitleTooLong, core.ErrNameTooLong,
		core.ErrEmptySharers, core.ErrBadReceiver, core.ErrSelfSettlement, core.ErrInvalidKind,
		core.ErrUnknownMember, core.ErrInvalidMonth,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
