package core

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"fleetcore/pkg/domain"

	"go.uber.org/zap"
)

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a span started by a Tracer.
type TraceSpan interface {
	End(err error)
}

// CustomerStats summarizes the customer collection. All customers are
// considered active; there is no archival state.
type CustomerStats struct {
	TotalCustomers  int `json:"total_customers"`
	ActiveCustomers int `json:"active_customers"`
}

// machineModels is the fixed catalogue used when synthesizing details.
var machineModels = []string{"AGR-5000", "AGR-3000", "AGR-7000", "AGR-2000", "AGR-4000"}

// Service exposes the typed fleet operations consumed by the
// presentation layer: CRUD on both collections, snapshot search and
// detail synthesis. Mutations run through the store's transactional
// path and therefore publish snapshots and evaluate advisory rules.
type Service struct {
	store   *MemoryStore
	nowFn   func() time.Time
	logger  *zap.Logger
	metrics MetricsRecorder
	tracer  Tracer

	rngMu sync.Mutex
	rng   *rand.Rand
}

// ServiceOption customizes service construction.
type ServiceOption func(*Service)

// WithClock overrides the service time source.
func WithClock(nowFn func() time.Time) ServiceOption {
	return func(s *Service) {
		if nowFn != nil {
			s.nowFn = nowFn
		}
	}
}

// WithLogger attaches a logger for advisory rule warnings.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics attaches an operation metrics recorder.
func WithMetrics(metrics MetricsRecorder) ServiceOption {
	return func(s *Service) { s.metrics = metrics }
}

// WithTracer attaches an operation tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) { s.tracer = tracer }
}

// WithDetailsSeed makes detail synthesis deterministic. Intended for tests.
func WithDetailsSeed(seed int64) ServiceOption {
	return func(s *Service) { s.rng = rand.New(rand.NewSource(seed)) }
}

// NewService constructs a service backed by the supplied store.
func NewService(store *MemoryStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		nowFn:  func() time.Time { return time.Now().UTC() },
		logger: zap.NewNop(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store wired to the
// default advisory rules engine.
func NewInMemoryService(opts ...ServiceOption) *Service {
	return NewService(NewMemoryStore(NewDefaultRulesEngine()), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() *MemoryStore {
	return s.store
}

// observe wraps one service operation with the optional tracer and
// metrics recorder.
func (s *Service) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	err := fn(ctx)
	if span != nil {
		span.End(err)
	}
	if s.metrics != nil {
		s.metrics.Observe(ctx, operation, err == nil, time.Since(start))
	}
	return err
}

func (s *Service) logResult(operation string, res Result) {
	for _, v := range res.Warnings() {
		s.logger.Warn("rule violation",
			zap.String("operation", operation),
			zap.String("rule", v.Rule),
			zap.String("severity", string(v.Severity)),
			zap.String("entity", string(v.Entity)),
			zap.String("entity_id", v.EntityID),
			zap.String("message", v.Message),
		)
	}
}

// Machines --------------------------------------------------------------------

// CreateMachine persists a new machine. When the referenced customer
// exists, the denormalized customer name is refreshed from the customer
// record rather than trusted from the caller.
func (s *Service) CreateMachine(ctx context.Context, machine Machine) (Machine, Result, error) {
	var (
		created Machine
		result  Result
	)
	err := s.observe(ctx, "create_machine", func(ctx context.Context) error {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			if owner, ok := tx.Snapshot().FindCustomer(machine.CustomerID); ok {
				machine.CustomerName = owner.Name
			}
			var err error
			created, err = tx.CreateMachine(machine)
			return err
		})
		result = res
		return err
	})
	s.logResult("create_machine", result)
	return created, result, err
}

// UpdateMachine mutates an existing machine. The customer name cache is
// refreshed after the mutator runs when the reference resolves.
func (s *Service) UpdateMachine(ctx context.Context, id string, mutator func(*Machine) error) (Machine, Result, error) {
	var (
		updated Machine
		result  Result
	)
	err := s.observe(ctx, "update_machine", func(ctx context.Context) error {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			var err error
			updated, err = tx.UpdateMachine(id, func(m *Machine) error {
				if err := mutator(m); err != nil {
					return err
				}
				if owner, ok := tx.Snapshot().FindCustomer(m.CustomerID); ok {
					m.CustomerName = owner.Name
				}
				return nil
			})
			return err
		})
		result = res
		return err
	})
	s.logResult("update_machine", result)
	return updated, result, err
}

// DeleteMachine removes a machine. An absent identifier is a no-op that
// reports false without publishing a snapshot.
func (s *Service) DeleteMachine(ctx context.Context, id string) (bool, Result, error) {
	var result Result
	err := s.observe(ctx, "delete_machine", func(ctx context.Context) error {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			return tx.DeleteMachine(id)
		})
		result = res
		return err
	})
	if domain.IsNotFound(err) {
		return false, Result{}, nil
	}
	if err != nil {
		return false, result, err
	}
	s.logResult("delete_machine", result)
	return true, result, nil
}

// GetMachine retrieves a machine by ID.
func (s *Service) GetMachine(id string) (Machine, bool) {
	return s.store.GetMachine(id)
}

// ListMachines returns the current machine snapshot.
func (s *Service) ListMachines() []Machine {
	return s.store.ListMachines()
}

// SearchMachines filters the current machine snapshot by name or
// customer name.
func (s *Service) SearchMachines(term string) []Machine {
	return SearchMachines(s.store.ListMachines(), term)
}

// MachineDetails resolves a machine and synthesizes the extended detail
// fields: serial number from the identifier, a model from the fixed
// catalogue, maintenance dates around the current time, and the
// heuristic efficiency score.
func (s *Service) MachineDetails(id string) (domain.MachineDetails, bool) {
	machine, ok := s.store.GetMachine(id)
	if !ok {
		return domain.MachineDetails{}, false
	}

	s.rngMu.Lock()
	model := machineModels[s.rng.Intn(len(machineModels))]
	lastOffset := time.Duration(s.rng.Float64() * 30 * 24 * float64(time.Hour))
	nextOffset := time.Duration(s.rng.Float64() * 60 * 24 * float64(time.Hour))
	s.rngMu.Unlock()

	now := s.nowFn()
	serial := machine.ID
	if len(serial) > 8 {
		serial = serial[:8]
	}
	return domain.MachineDetails{
		Machine:             machine,
		SerialNumber:        "SN-" + serial,
		Model:               model,
		LastMaintenanceDate: now.Add(-lastOffset),
		NextMaintenanceDate: now.Add(nextOffset),
		Efficiency:          EfficiencyScore(machine),
	}, true
}

// Customers -------------------------------------------------------------------

// CreateCustomer persists a new customer.
func (s *Service) CreateCustomer(ctx context.Context, customer Customer) (Customer, Result, error) {
	var (
		created Customer
		result  Result
	)
	err := s.observe(ctx, "create_customer", func(ctx context.Context) error {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			var err error
			created, err = tx.CreateCustomer(customer)
			return err
		})
		result = res
		return err
	})
	s.logResult("create_customer", result)
	return created, result, err
}

// UpdateCustomer mutates an existing customer. When the customer name
// changes, the denormalized name cached on owned machines is refreshed
// within the same transaction.
func (s *Service) UpdateCustomer(ctx context.Context, id string, mutator func(*Customer) error) (Customer, Result, error) {
	var (
		updated Customer
		result  Result
	)
	err := s.observe(ctx, "update_customer", func(ctx context.Context) error {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			var err error
			updated, err = tx.UpdateCustomer(id, mutator)
			if err != nil {
				return err
			}
			for _, m := range tx.Snapshot().ListMachines() {
				if m.CustomerID != id || m.CustomerName == updated.Name {
					continue
				}
				if _, err := tx.UpdateMachine(m.ID, func(mm *Machine) error {
					mm.CustomerName = updated.Name
					return nil
				}); err != nil {
					return err
				}
			}
			return nil
		})
		result = res
		return err
	})
	s.logResult("update_customer", result)
	return updated, result, err
}

// DeleteCustomer removes a customer. Machines owned by the customer are
// left untouched; the advisory owner integrity rule reports the
// resulting orphans. An absent identifier is a no-op that reports false.
func (s *Service) DeleteCustomer(ctx context.Context, id string) (bool, Result, error) {
	var result Result
	err := s.observe(ctx, "delete_customer", func(ctx context.Context) error {
		res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
			return tx.DeleteCustomer(id)
		})
		result = res
		return err
	})
	if domain.IsNotFound(err) {
		return false, Result{}, nil
	}
	if err != nil {
		return false, result, err
	}
	s.logResult("delete_customer", result)
	return true, result, nil
}

// GetCustomer retrieves a customer by ID.
func (s *Service) GetCustomer(id string) (Customer, bool) {
	return s.store.GetCustomer(id)
}

// ListCustomers returns the current customer snapshot.
func (s *Service) ListCustomers() []Customer {
	return s.store.ListCustomers()
}

// SearchCustomers filters the current customer snapshot by name or VAT
// number.
func (s *Service) SearchCustomers(term string) []Customer {
	return SearchCustomers(s.store.ListCustomers(), term)
}

// IsVATNumberTaken reports whether another customer already carries the
// VAT number. The check is advisory; nothing enforces uniqueness at
// commit time.
func (s *Service) IsVATNumberTaken(vatNumber, excludeID string) bool {
	for _, c := range s.store.ListCustomers() {
		if c.VATNumber == vatNumber && c.ID != excludeID {
			return true
		}
	}
	return false
}

// CustomerStatsSummary counts the customer collection.
func (s *Service) CustomerStatsSummary() CustomerStats {
	total := len(s.store.ListCustomers())
	return CustomerStats{TotalCustomers: total, ActiveCustomers: total}
}
