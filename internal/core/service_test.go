package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"fleetcore/pkg/domain"
)

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	return NewService(NewMemoryStore(NewDefaultRulesEngine()), opts...)
}

func TestServiceCreateMachineResolvesOwnerName(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	owner, _, err := svc.CreateCustomer(ctx, Customer{Name: "Azienda Agricola Rossi", VATNumber: "12345678901"})
	if err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}

	machine, res, err := svc.CreateMachine(ctx, Machine{
		Name:         "Trattore T-5000",
		CustomerID:   owner.ID,
		CustomerName: "stale name from caller",
		Status:       StatusRunning,
	})
	if err != nil {
		t.Fatalf("CreateMachine failed: %v", err)
	}
	if machine.CustomerName != owner.Name {
		t.Fatalf("CustomerName = %q, want %q", machine.CustomerName, owner.Name)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("unexpected violations: %+v", res.Violations)
	}
}

func TestServiceCreateMachineOrphanOwnerWarns(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	machine, res, err := svc.CreateMachine(ctx, Machine{
		Name:       "Drone DS-100",
		CustomerID: "missing-customer",
		Status:     StatusRunning,
	})
	if err != nil {
		t.Fatalf("CreateMachine should commit despite the warning, got %v", err)
	}
	if _, ok := svc.GetMachine(machine.ID); !ok {
		t.Fatalf("machine was not committed")
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "owner_integrity" {
		t.Fatalf("expected one owner_integrity warning, got %+v", res.Violations)
	}
}

func TestServiceUpdateMachineRefreshesOwnerName(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	a, _, _ := svc.CreateCustomer(ctx, Customer{Name: "Cooperativa Verde", VATNumber: "09876543210"})
	b, _, _ := svc.CreateCustomer(ctx, Customer{Name: "Agritech Solutions", VATNumber: "99887766554"})
	machine, _, err := svc.CreateMachine(ctx, Machine{Name: "Seminatrice SP-200", CustomerID: a.ID, Status: StatusStopped})
	if err != nil {
		t.Fatalf("CreateMachine failed: %v", err)
	}

	updated, _, err := svc.UpdateMachine(ctx, machine.ID, func(m *Machine) error {
		m.CustomerID = b.ID
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateMachine failed: %v", err)
	}
	if updated.CustomerName != b.Name {
		t.Fatalf("CustomerName = %q, want %q", updated.CustomerName, b.Name)
	}
}

func TestServiceUpdateCustomerPropagatesRename(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	owner, _, _ := svc.CreateCustomer(ctx, Customer{Name: "Fattoria Moderna SRL", VATNumber: "11223344556"})
	other, _, _ := svc.CreateCustomer(ctx, Customer{Name: "Cooperativa Verde", VATNumber: "09876543210"})
	owned, _, _ := svc.CreateMachine(ctx, Machine{Name: "Mietitrebbia MZ-150", CustomerID: owner.ID, Status: StatusMaintenance})
	unrelated, _, _ := svc.CreateMachine(ctx, Machine{Name: "Irrigatore IA-300", CustomerID: other.ID, Status: StatusRunning})

	var observed []Machine
	sub := svc.Store().SubscribeMachines(func(machines []Machine) {
		observed = machines
	})
	defer sub.Unsubscribe()

	_, _, err := svc.UpdateCustomer(ctx, owner.ID, func(c *Customer) error {
		c.Name = "Fattoria Moderna SPA"
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateCustomer failed: %v", err)
	}

	got, _ := svc.GetMachine(owned.ID)
	if got.CustomerName != "Fattoria Moderna SPA" {
		t.Fatalf("owned machine CustomerName = %q, want rename propagated", got.CustomerName)
	}
	untouched, _ := svc.GetMachine(unrelated.ID)
	if untouched.CustomerName != other.Name {
		t.Fatalf("unrelated machine CustomerName = %q, want %q", untouched.CustomerName, other.Name)
	}

	// The rename and propagation commit together, so machine subscribers
	// see a single snapshot already carrying the new name.
	found := false
	for _, m := range observed {
		if m.ID == owned.ID && m.CustomerName == "Fattoria Moderna SPA" {
			found = true
		}
	}
	if !found {
		t.Fatalf("published snapshot lacks the propagated name: %+v", observed)
	}
}

func TestServiceDeleteAbsentEntities(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	deleted, res, err := svc.DeleteMachine(ctx, "no-such-machine")
	if err != nil || deleted {
		t.Fatalf("DeleteMachine(absent) = (%v, %v), want (false, nil)", deleted, err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("unexpected violations on no-op delete: %+v", res.Violations)
	}

	deleted, _, err = svc.DeleteCustomer(ctx, "no-such-customer")
	if err != nil || deleted {
		t.Fatalf("DeleteCustomer(absent) = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestServiceDeleteCustomerWarnsAboutOrphans(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	owner, _, _ := svc.CreateCustomer(ctx, Customer{Name: "Azienda Agricola Rossi", VATNumber: "12345678901"})
	machine, _, _ := svc.CreateMachine(ctx, Machine{Name: "Trattore T-5000", CustomerID: owner.ID, Status: StatusRunning})

	deleted, res, err := svc.DeleteCustomer(ctx, owner.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteCustomer = (%v, %v), want (true, nil)", deleted, err)
	}
	if len(res.Warnings()) == 0 {
		t.Fatalf("expected orphan warning, got %+v", res.Violations)
	}
	if _, ok := svc.GetMachine(machine.ID); !ok {
		t.Fatalf("delete must not cascade to owned machines")
	}
}

func TestServiceIsVATNumberTaken(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	c, _, _ := svc.CreateCustomer(ctx, Customer{Name: "Cooperativa Verde", VATNumber: "09876543210"})

	if !svc.IsVATNumberTaken("09876543210", "") {
		t.Fatalf("expected VAT number to be reported taken")
	}
	if svc.IsVATNumberTaken("09876543210", c.ID) {
		t.Fatalf("excluding the holder must report not taken")
	}
	if svc.IsVATNumberTaken("00000000000", "") {
		t.Fatalf("unknown VAT number reported taken")
	}
}

func TestServiceMachineDetailsDeterministic(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	build := func() (domain.MachineDetails, Machine) {
		svc := newTestService(t, WithClock(clock), WithDetailsSeed(42))
		machine, _, err := svc.CreateMachine(ctx, Machine{
			ID:                  "f47ac10b-58cc-4372-a567-0e02b2c3d479",
			Name:                "Trattore T-5000",
			Status:              StatusRunning,
			TotalOperationHours: 2500,
		})
		if err != nil {
			t.Fatalf("CreateMachine failed: %v", err)
		}
		details, ok := svc.MachineDetails(machine.ID)
		if !ok {
			t.Fatalf("MachineDetails missing")
		}
		return details, machine
	}

	first, machine := build()
	second, _ := build()

	if first.SerialNumber != "SN-f47ac10b" {
		t.Fatalf("SerialNumber = %q", first.SerialNumber)
	}
	if first.Model != second.Model || !first.LastMaintenanceDate.Equal(second.LastMaintenanceDate) {
		t.Fatalf("seeded synthesis must be reproducible: %+v vs %+v", first, second)
	}
	if first.LastMaintenanceDate.After(now) || first.NextMaintenanceDate.Before(now) {
		t.Fatalf("maintenance dates not anchored to the clock: %+v", first)
	}
	if first.Efficiency != EfficiencyScore(machine) {
		t.Fatalf("Efficiency = %d, want heuristic score %d", first.Efficiency, EfficiencyScore(machine))
	}

	if _, ok := newTestService(t).MachineDetails("absent"); ok {
		t.Fatalf("details for an absent machine must report false")
	}
}

func TestServiceCustomerStatsSummary(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	for _, c := range []Customer{
		{Name: "Azienda Agricola Rossi", VATNumber: "12345678901"},
		{Name: "Cooperativa Verde", VATNumber: "09876543210"},
	} {
		if _, _, err := svc.CreateCustomer(ctx, c); err != nil {
			t.Fatalf("CreateCustomer failed: %v", err)
		}
	}

	stats := svc.CustomerStatsSummary()
	if stats.TotalCustomers != 2 || stats.ActiveCustomers != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

type recordedObservation struct {
	operation string
	success   bool
}

type captureRecorder struct {
	mu           sync.Mutex
	observations []recordedObservation
}

func (r *captureRecorder) Observe(_ context.Context, operation string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observations = append(r.observations, recordedObservation{operation, success})
}

func TestServiceRecordsOperationMetrics(t *testing.T) {
	ctx := context.Background()
	recorder := &captureRecorder{}
	svc := newTestService(t, WithMetrics(recorder))

	if _, _, err := svc.CreateCustomer(ctx, Customer{Name: "Agritech Solutions", VATNumber: "99887766554"}); err != nil {
		t.Fatalf("CreateCustomer failed: %v", err)
	}
	if _, _, err := svc.UpdateMachine(ctx, "missing", func(*Machine) error { return nil }); err == nil {
		t.Fatalf("expected update of a missing machine to fail")
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.observations) != 2 {
		t.Fatalf("expected 2 observations, got %+v", recorder.observations)
	}
	if recorder.observations[0] != (recordedObservation{"create_customer", true}) {
		t.Fatalf("unexpected first observation: %+v", recorder.observations[0])
	}
	if recorder.observations[1] != (recordedObservation{"update_machine", false}) {
		t.Fatalf("unexpected second observation: %+v", recorder.observations[1])
	}
}
