package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"conti/internal/core"
	"conti/internal/store"
)

var _ store.Repository = (*Store)(nil)

// Store keeps a room in memory. Returned values are copies.
type Store struct {
	mu      sync.Mutex
	members []core.Member
	groups  []core.Group
	txs     []core.Transaction
}

func New() *Store {
	return &Store{}
}

// NewWithMembers creates a store seeded with members of the given names.
func NewWithMembers(names ...string) *Store {
	s := New()
	for _, n := range names {
		s.members = append(s.members, core.Member{ID: uuid.NewString(), Name: n})
	}
	return s
}

func (s *Store) AddMember(_ context.Context, m core.Member) (core.Member, error) {
	if err := core.ValidateName(m.Name); err != nil {
		return core.Member{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if slices.ContainsFunc(s.members, func(x core.Member) bool { return x.ID == m.ID }) {
		return core.Member{}, fmt.Errorf("member %s already exists", m.ID)
	}
	s.members = append(s.members, m)
	return m, nil
}

func (s *Store) ListMembers(_ context.Context) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.members), nil
}

func (s *Store) DeleteMember(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.members, func(m core.Member) bool { return m.ID == id })
	if i < 0 {
		return core.ErrNotFound
	}
	s.members = slices.Delete(s.members, i, i+1)
	return nil
}

func (s *Store) MemberReferenced(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.ContainsFunc(s.txs, func(t core.Transaction) bool { return t.Involves(id) }), nil
}

func (s *Store) AddGroup(_ context.Context, g core.Group) (core.Group, error) {
	if err := core.ValidateName(g.Name); err != nil {
		return core.Group{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if slices.ContainsFunc(s.groups, func(x core.Group) bool { return x.ID == g.ID }) {
		return core.Group{}, fmt.Errorf("group %s already exists", g.ID)
	}
	s.groups = append(s.groups, g)
	return g, nil
}

func (s *Store) ListGroups(_ context.Context) ([]core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.groups), nil
}

func (s *Store) DeleteGroup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.groups, func(g core.Group) bool { return g.ID == id })
	if i < 0 {
		return core.ErrNotFound
	}
	s.groups = slices.Delete(s.groups, i, i+1)
	s.txs = slices.DeleteFunc(s.txs, func(t core.Transaction) bool { return t.GroupID == id })
	return nil
}

func (s *Store) AddTransactions(_ context.Context, txs ...core.Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, len(txs))
	for i, t := range txs {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.SharedBy = slices.Clone(t.SharedBy)
		out[i] = t
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, out...)
	return cloneTxs(out), nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txs {
		if t.ID == id {
			t.SharedBy = slices.Clone(t.SharedBy)
			return t, nil
		}
	}
	return core.Transaction{}, core.ErrNotFound
}

func (s *Store) ListTransactions(_ context.Context, scope string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTxs(core.FilterScope(s.txs, scope)), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.txs, func(t core.Transaction) bool { return t.ID == id })
	if i < 0 {
		return core.ErrNotFound
	}
	s.txs = slices.Delete(s.txs, i, i+1)
	return nil
}

func cloneTxs(in []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(in))
	for i, t := range in {
		t.SharedBy = slices.Clone(t.SharedBy)
		out[i] = t
	}
	return out
}
