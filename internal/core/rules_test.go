package core

import (
	"context"
	"testing"
)

func createMachineForRules(t *testing.T, store *MemoryStore, m Machine) Machine {
	t.Helper()
	var created Machine
	if _, err := store.RunInTransaction(context.Background(), func(tx *Transaction) error {
		var err error
		created, err = tx.CreateMachine(m)
		return err
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return created
}

func TestStatusTransitionRuleWarnsOnMaintenanceToRunning(t *testing.T) {
	store := NewMemoryStore(NewDefaultRulesEngine())
	machine := createMachineForRules(t, store, Machine{Name: "Mietitrebbia MZ-150", Status: StatusMaintenance})

	res, err := store.RunInTransaction(context.Background(), func(tx *Transaction) error {
		_, err := tx.UpdateMachine(machine.ID, func(m *Machine) error {
			m.Status = StatusRunning
			return nil
		})
		return err
	})
	if err != nil {
		t.Fatalf("warning must not block the commit: %v", err)
	}

	warnings := res.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %+v", res.Violations)
	}
	if warnings[0].Rule != "status_transition" || warnings[0].EntityID != machine.ID {
		t.Fatalf("unexpected warning: %+v", warnings[0])
	}

	got, ok := store.GetMachine(machine.ID)
	if !ok || got.Status != StatusRunning {
		t.Fatalf("transition was not applied: %+v", got)
	}
}

func TestStatusTransitionRuleWarnsOnUnknownStatus(t *testing.T) {
	store := NewMemoryStore(NewDefaultRulesEngine())

	res, err := store.RunInTransaction(context.Background(), func(tx *Transaction) error {
		_, err := tx.CreateMachine(Machine{Name: "Drone DS-100", Status: MachineStatus("exploded")})
		return err
	})
	if err != nil {
		t.Fatalf("unexpected block: %v", err)
	}
	warnings := res.Warnings()
	if len(warnings) != 1 || warnings[0].Rule != "status_transition" {
		t.Fatalf("expected unknown-status warning, got %+v", res.Violations)
	}
}

func TestStatusTransitionRuleSilentOnOrdinaryTransitions(t *testing.T) {
	store := NewMemoryStore(NewDefaultRulesEngine())
	machine := createMachineForRules(t, store, Machine{Name: "Trattore T-5000", Status: StatusRunning})

	transitions := []MachineStatus{StatusStopped, StatusMaintenance, StatusStopped, StatusRunning}
	for _, next := range transitions {
		res, err := store.RunInTransaction(context.Background(), func(tx *Transaction) error {
			_, err := tx.UpdateMachine(machine.ID, func(m *Machine) error {
				m.Status = next
				return nil
			})
			return err
		})
		if err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
		if len(res.Violations) != 0 {
			t.Fatalf("transition to %s should be silent, got %+v", next, res.Violations)
		}
	}
}

func TestOwnerIntegrityRuleReportsEveryOrphan(t *testing.T) {
	store := NewMemoryStore(NewDefaultRulesEngine())
	ctx := context.Background()

	var owner Customer
	if _, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
		var err error
		owner, err = tx.CreateCustomer(Customer{Name: "Azienda Agricola Rossi", VATNumber: "12345678901"})
		if err != nil {
			return err
		}
		for _, name := range []string{"Trattore T-5000", "Irrigatore IA-300"} {
			if _, err := tx.CreateMachine(Machine{Name: name, CustomerID: owner.ID, Status: StatusRunning}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("fixture failed: %v", err)
	}

	res, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
		return tx.DeleteCustomer(owner.ID)
	})
	if err != nil {
		t.Fatalf("deleting the owner must not block: %v", err)
	}

	warnings := res.Warnings()
	if len(warnings) != 2 {
		t.Fatalf("expected a warning per orphaned machine, got %+v", res.Violations)
	}
	for _, w := range warnings {
		if w.Rule != "owner_integrity" || w.Entity != EntityMachine {
			t.Fatalf("unexpected warning: %+v", w)
		}
	}
	if len(store.ListMachines()) != 2 {
		t.Fatalf("delete must not cascade to machines")
	}
}

func TestOwnerIntegrityRuleSilentWithoutReferences(t *testing.T) {
	store := NewMemoryStore(NewDefaultRulesEngine())

	res, err := store.RunInTransaction(context.Background(), func(tx *Transaction) error {
		_, err := tx.CreateMachine(Machine{Name: "Drone DS-100", Status: StatusStopped})
		return err
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("machine without an owner reference should be silent, got %+v", res.Violations)
	}
}
