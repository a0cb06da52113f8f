package core

import (
	"context"
	"testing"
)

func TestSubscribeDeliversCurrentSnapshotImmediately(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	if _, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
		_, err := tx.CreateMachine(Machine{Name: "Seeded"})
		return err
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	var deliveries [][]Machine
	sub := store.SubscribeMachines(func(snapshot []Machine) {
		deliveries = append(deliveries, snapshot)
	})
	defer sub.Unsubscribe()

	if len(deliveries) != 1 {
		t.Fatalf("expected immediate delivery, got %d", len(deliveries))
	}
	if len(deliveries[0]) != 1 || deliveries[0][0].Name != "Seeded" {
		t.Fatalf("unexpected initial snapshot: %+v", deliveries[0])
	}
}

func TestSubscribersObserveCommitsInOrder(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	var sizes []int
	sub := store.SubscribeMachines(func(snapshot []Machine) {
		sizes = append(sizes, len(snapshot))
	})
	defer sub.Unsubscribe()

	for i := 0; i < 3; i++ {
		if _, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
			_, err := tx.CreateMachine(Machine{Name: "M"})
			return err
		}); err != nil {
			t.Fatalf("commit %d failed: %v", i, err)
		}
	}

	want := []int{0, 1, 2, 3}
	if len(sizes) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(sizes))
	}
	for i, w := range want {
		if sizes[i] != w {
			t.Fatalf("delivery %d saw %d machines, want %d", i, sizes[i], w)
		}
	}
}

func TestFailedMutationDoesNotPublish(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	calls := 0
	sub := store.SubscribeMachines(func([]Machine) { calls++ })
	defer sub.Unsubscribe()
	if calls != 1 {
		t.Fatalf("expected initial delivery only, got %d", calls)
	}

	// Delete of an absent id aborts the transaction; no snapshot follows.
	if _, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
		return tx.DeleteMachine("missing")
	}); err == nil {
		t.Fatalf("expected delete of missing machine to fail")
	}
	if calls != 1 {
		t.Fatalf("aborted transaction published a snapshot: %d calls", calls)
	}

	// Read-only transactions publish nothing either.
	if _, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
		return nil
	}); err != nil {
		t.Fatalf("empty transaction failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("empty transaction published a snapshot: %d calls", calls)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	calls := 0
	sub := store.SubscribeMachines(func([]Machine) { calls++ })
	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	if _, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
		_, err := tx.CreateMachine(Machine{Name: "After"})
		return err
	}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if calls != 1 {
		t.Fatalf("cancelled observer was invoked: %d calls", calls)
	}
}

func TestUnsubscribeFromWithinCallback(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	calls := 0
	var sub *Subscription
	sub = store.SubscribeMachines(func([]Machine) {
		calls++
		if calls == 2 {
			sub.Unsubscribe()
		}
	})

	for i := 0; i < 3; i++ {
		if _, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
			_, err := tx.CreateMachine(Machine{Name: "M"})
			return err
		}); err != nil {
			t.Fatalf("commit failed: %v", err)
		}
	}

	if calls != 2 {
		t.Fatalf("expected self-unsubscribe after 2 deliveries, got %d", calls)
	}
}

func TestCustomerMutationsOnlyNotifyCustomerSubscribers(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()

	machineCalls, customerCalls := 0, 0
	msub := store.SubscribeMachines(func([]Machine) { machineCalls++ })
	defer msub.Unsubscribe()
	csub := store.SubscribeCustomers(func([]Customer) { customerCalls++ })
	defer csub.Unsubscribe()

	if _, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
		_, err := tx.CreateCustomer(Customer{Name: "Solo Cliente", VATNumber: "1"})
		return err
	}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	if machineCalls != 1 {
		t.Fatalf("machine subscriber notified on customer-only commit: %d", machineCalls)
	}
	if customerCalls != 2 {
		t.Fatalf("expected customer subscriber to see the commit, got %d calls", customerCalls)
	}
}
