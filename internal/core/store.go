package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"fleetcore/pkg/domain"

	"github.com/google/uuid"
)

type memoryState struct {
	machines      map[string]Machine
	machineOrder  []string
	customers     map[string]Customer
	customerOrder []string
}

func newMemoryState() memoryState {
	return memoryState{
		machines:  make(map[string]Machine),
		customers: make(map[string]Customer),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.machines {
		cloned.machines[k] = v
	}
	for k, v := range s.customers {
		cloned.customers[k] = v
	}
	cloned.machineOrder = append([]string(nil), s.machineOrder...)
	cloned.customerOrder = append([]string(nil), s.customerOrder...)
	return cloned
}

// machineSnapshot materializes the machines in insertion order.
func (s memoryState) machineSnapshot() []Machine {
	out := make([]Machine, 0, len(s.machineOrder))
	for _, id := range s.machineOrder {
		out = append(out, s.machines[id])
	}
	return out
}

// customerSnapshot materializes the customers in insertion order.
func (s memoryState) customerSnapshot() []Customer {
	out := make([]Customer, 0, len(s.customerOrder))
	for _, id := range s.customerOrder {
		out = append(out, s.customers[id])
	}
	return out
}

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// MemoryStore is the in-memory source of truth for the machine and
// customer collections. Mutations run through transactions that clone
// the state, so readers and subscribers always observe a consistent
// snapshot, never a partially applied one. The store is reset on
// process restart; there is no durable backend.
type MemoryStore struct {
	mu                sync.RWMutex
	state             memoryState
	engine            *domain.RulesEngine
	nowFn             func() time.Time
	machineObservers  []*observer[Machine]
	customerObservers []*observer[Customer]
}

// NewMemoryStore constructs an in-memory store backed by the provided
// rules engine. A nil engine disables rule evaluation.
func NewMemoryStore(engine *domain.RulesEngine) *MemoryStore {
	return &MemoryStore{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the commit timestamp source. Intended for tests.
func (s *MemoryStore) SetClock(nowFn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

func (s *MemoryStore) newID() string {
	return uuid.NewString()
}

// Transaction represents a mutation set applied to the store state.
type Transaction struct {
	store   *MemoryStore
	state   memoryState
	changes []Change
	now     time.Time
}

// TransactionView exposes a read-only snapshot of the transactional
// state to rules and read callbacks.
type TransactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return TransactionView{state: state}
}

// ListMachines returns all machines within the snapshot, in insertion order.
func (v TransactionView) ListMachines() []Machine {
	return v.state.machineSnapshot()
}

// ListCustomers returns all customers within the snapshot, in insertion order.
func (v TransactionView) ListCustomers() []Customer {
	return v.state.customerSnapshot()
}

// FindMachine retrieves a machine by ID from the snapshot.
func (v TransactionView) FindMachine(id string) (Machine, bool) {
	m, ok := v.state.machines[id]
	return m, ok
}

// FindCustomer retrieves a customer by ID from the snapshot.
func (v TransactionView) FindCustomer(id string) (Customer, bool) {
	c, ok := v.state.customers[id]
	return c, ok
}

// Snapshot returns the read-only view of the transactional state.
func (tx *Transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// RunInTransaction executes fn within a transactional copy of the store
// state. When fn returns an error the state is discarded and nothing is
// published. Registered rules evaluate against the post-change state;
// blocking violations abort the commit with RuleViolationError. On
// commit, subscribers of every touched collection receive the new
// snapshot before RunInTransaction returns.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx *Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}
	if len(tx.changes) == 0 {
		return Result{}, nil
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	s.publishLocked(tx.changes)
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *MemoryStore) View(ctx context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *Transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// CreateMachine stores a new machine within the transaction. A fresh
// identifier is assigned when none is supplied.
func (tx *Transaction) CreateMachine(m Machine) (Machine, error) {
	if m.ID == "" {
		m.ID = tx.store.newID()
	}
	if _, exists := tx.state.machines[m.ID]; exists {
		return Machine{}, fmt.Errorf("machine %q already exists", m.ID)
	}
	tx.state.machines[m.ID] = m
	tx.state.machineOrder = append(tx.state.machineOrder, m.ID)
	tx.recordChange(Change{
		Entity: EntityMachine,
		Action: ActionCreate,
		Before: domain.UndefinedChangePayload(),
		After:  domain.NewChangePayload(m),
	})
	return m, nil
}

// UpdateMachine mutates a machine using the provided mutator function.
// The identifier cannot be changed through an update.
func (tx *Transaction) UpdateMachine(id string, mutator func(*Machine) error) (Machine, error) {
	current, ok := tx.state.machines[id]
	if !ok {
		return Machine{}, domain.NotFoundError{Entity: EntityMachine, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Machine{}, err
	}
	current.ID = id
	tx.state.machines[id] = current
	tx.recordChange(Change{
		Entity: EntityMachine,
		Action: ActionUpdate,
		Before: domain.NewChangePayload(before),
		After:  domain.NewChangePayload(current),
	})
	return current, nil
}

// DeleteMachine removes a machine from the transaction state.
func (tx *Transaction) DeleteMachine(id string) error {
	current, ok := tx.state.machines[id]
	if !ok {
		return domain.NotFoundError{Entity: EntityMachine, ID: id}
	}
	delete(tx.state.machines, id)
	tx.state.machineOrder = removeID(tx.state.machineOrder, id)
	tx.recordChange(Change{
		Entity: EntityMachine,
		Action: ActionDelete,
		Before: domain.NewChangePayload(current),
		After:  domain.UndefinedChangePayload(),
	})
	return nil
}

// CreateCustomer stores a new customer. CreatedAt and UpdatedAt are
// stamped with the transaction time unless pre-set, so seed data keeps
// its fixed timestamps.
func (tx *Transaction) CreateCustomer(c Customer) (Customer, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.customers[c.ID]; exists {
		return Customer{}, fmt.Errorf("customer %q already exists", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = tx.now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = tx.now
	}
	tx.state.customers[c.ID] = c
	tx.state.customerOrder = append(tx.state.customerOrder, c.ID)
	tx.recordChange(Change{
		Entity: EntityCustomer,
		Action: ActionCreate,
		Before: domain.UndefinedChangePayload(),
		After:  domain.NewChangePayload(c),
	})
	return c, nil
}

// UpdateCustomer mutates an existing customer and stamps UpdatedAt.
func (tx *Transaction) UpdateCustomer(id string, mutator func(*Customer) error) (Customer, error) {
	current, ok := tx.state.customers[id]
	if !ok {
		return Customer{}, domain.NotFoundError{Entity: EntityCustomer, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Customer{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.customers[id] = current
	tx.recordChange(Change{
		Entity: EntityCustomer,
		Action: ActionUpdate,
		Before: domain.NewChangePayload(before),
		After:  domain.NewChangePayload(current),
	})
	return current, nil
}

// DeleteCustomer removes a customer. Machines referencing the customer
// are left in place; orphaned references are surfaced by the advisory
// owner integrity rule, never blocked.
func (tx *Transaction) DeleteCustomer(id string) error {
	current, ok := tx.state.customers[id]
	if !ok {
		return domain.NotFoundError{Entity: EntityCustomer, ID: id}
	}
	delete(tx.state.customers, id)
	tx.state.customerOrder = removeID(tx.state.customerOrder, id)
	tx.recordChange(Change{
		Entity: EntityCustomer,
		Action: ActionDelete,
		Before: domain.NewChangePayload(current),
		After:  domain.UndefinedChangePayload(),
	})
	return nil
}

// Read helpers ---------------------------------------------------------------

// GetMachine retrieves a machine by ID from committed state.
func (s *MemoryStore) GetMachine(id string) (Machine, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.machines[id]
	return m, ok
}

// ListMachines returns all machines from committed state, in insertion order.
func (s *MemoryStore) ListMachines() []Machine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.machineSnapshot()
}

// GetCustomer retrieves a customer by ID from committed state.
func (s *MemoryStore) GetCustomer(id string) (Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.customers[id]
	return c, ok
}

// ListCustomers returns all customers from committed state, in insertion order.
func (s *MemoryStore) ListCustomers() []Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.customerSnapshot()
}

// Subscriptions --------------------------------------------------------------

type observer[T any] struct {
	fn     func([]T)
	closed atomic.Bool
}

// Subscription controls the lifetime of a snapshot subscription.
type Subscription struct {
	stop func()
}

// Unsubscribe stops delivery. It is idempotent and safe to call from
// within a delivery callback; once it returns the observer is never
// invoked again.
func (s *Subscription) Unsubscribe() {
	s.stop()
}

// SubscribeMachines registers fn as a machine snapshot observer. The
// current snapshot is delivered synchronously before Subscribe returns,
// then every committed snapshot follows in commit order. Observers must
// work off the delivered slice and must not call back into the store
// from the callback.
func (s *MemoryStore) SubscribeMachines(fn func([]Machine)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs := &observer[Machine]{fn: fn}
	s.machineObservers = append(s.machineObservers, obs)
	fn(s.state.machineSnapshot())
	return &Subscription{stop: func() { obs.closed.Store(true) }}
}

// SubscribeCustomers registers fn as a customer snapshot observer with
// the same delivery contract as SubscribeMachines.
func (s *MemoryStore) SubscribeCustomers(fn func([]Customer)) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	obs := &observer[Customer]{fn: fn}
	s.customerObservers = append(s.customerObservers, obs)
	fn(s.state.customerSnapshot())
	return &Subscription{stop: func() { obs.closed.Store(true) }}
}

// publishLocked notifies subscribers of every collection touched by the
// committed change set. Callers must hold s.mu, which serializes
// deliveries into commit order.
func (s *MemoryStore) publishLocked(changes []Change) {
	var machinesTouched, customersTouched bool
	for _, c := range changes {
		switch c.Entity {
		case EntityMachine:
			machinesTouched = true
		case EntityCustomer:
			customersTouched = true
		}
	}
	if machinesTouched {
		s.machineObservers = notify(s.machineObservers, s.state.machineSnapshot())
	}
	if customersTouched {
		s.customerObservers = notify(s.customerObservers, s.state.customerSnapshot())
	}
}

// notify delivers the snapshot to live observers and prunes closed ones.
// Each observer receives its own copy of the snapshot slice.
func notify[T any](observers []*observer[T], snapshot []T) []*observer[T] {
	live := observers[:0]
	for _, obs := range observers {
		if obs.closed.Load() {
			continue
		}
		obs.fn(append([]T(nil), snapshot...))
		live = append(live, obs)
	}
	return live
}
