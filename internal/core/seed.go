package core

import (
	"context"
	"time"

	"fleetcore/pkg/domain"
)

// SeedDemoFleet loads the fixed demo dataset into the store: five
// customers and five machines with stable identifiers, so the dashboard
// has content on a fresh process. Seeding an already-populated store
// fails on the duplicate identifiers.
func SeedDemoFleet(ctx context.Context, store *MemoryStore) error {
	now := time.Now().UTC()
	_, err := store.RunInTransaction(ctx, func(tx *Transaction) error {
		for _, c := range demoCustomers(now) {
			if _, err := tx.CreateCustomer(c); err != nil {
				return err
			}
		}
		for _, m := range demoMachines() {
			if _, err := tx.CreateMachine(m); err != nil {
				return err
			}
		}
		return nil
	})
	return err
}

func demoCustomers(now time.Time) []Customer {
	return []Customer{
		{
			ID:        "c1",
			Name:      "Azienda Agricola Rossi",
			VATNumber: "12345678901",
			Email:     "info@agricolarossi.it",
			Phone:     "+39 0123 456789",
			Address:   "Via dei Campi, 123, 12345 Campagna (CN)",
			CreatedAt: now.AddDate(0, 0, -365),
			UpdatedAt: now.AddDate(0, 0, -30),
		},
		{
			ID:        "c2",
			Name:      "Cooperativa Verde",
			VATNumber: "09876543210",
			Email:     "admin@cooperativaverde.it",
			Phone:     "+39 0987 654321",
			Address:   "Piazza della Cooperazione, 5, 54321 Verdonia (TO)",
			CreatedAt: now.AddDate(0, 0, -200),
			UpdatedAt: now.AddDate(0, 0, -15),
		},
		{
			ID:        "c3",
			Name:      "Fattoria Moderna SRL",
			VATNumber: "11223344556",
			Email:     "contact@fattoriamoderna.it",
			Phone:     "+39 0111 222333",
			Address:   "Strada Provinciale 45, 67890 Modernopoli (MI)",
			CreatedAt: now.AddDate(0, 0, -150),
			UpdatedAt: now.AddDate(0, 0, -7),
		},
		{
			ID:        "c4",
			Name:      "Agritech Solutions",
			VATNumber: "99887766554",
			Email:     "hello@agritech.it",
			Phone:     "+39 0444 555666",
			Address:   "Via dell'Innovazione, 10, 13579 Techville (BO)",
			CreatedAt: now.AddDate(0, 0, -90),
			UpdatedAt: now.AddDate(0, 0, -3),
		},
		{
			ID:        "c5",
			Name:      "Agricoltura Biologica Bianchi",
			VATNumber: "55443322110",
			Email:     "bio@bianchi.it",
			Phone:     "+39 0555 777888",
			Address:   "Via Naturale, 77, 24680 Biolandia (FI)",
			CreatedAt: now.AddDate(0, 0, -60),
			UpdatedAt: now.AddDate(0, 0, -1),
		},
	}
}

func demoMachines() []Machine {
	return []Machine{
		{
			ID:                   "f47ac10b-58cc-4372-a567-0e02b2c3d479",
			Name:                 "Trattore Autonomo T-5000",
			CustomerID:           "c1",
			CustomerName:         "Azienda Agricola Rossi",
			OperationalStartDate: time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC),
			TotalOperationHours:  1250,
			Status:               domain.StatusRunning,
		},
		{
			ID:                   "f47ac10b-58cc-4372-a567-0e02b2c3d480",
			Name:                 "Seminatrice Precision SP-200",
			CustomerID:           "c2",
			CustomerName:         "Cooperativa Verde",
			OperationalStartDate: time.Date(2023, time.April, 20, 0, 0, 0, 0, time.UTC),
			TotalOperationHours:  890,
			Status:               domain.StatusStopped,
			HasAnomalies:         true,
		},
		{
			ID:                   "f47ac10b-58cc-4372-a567-0e02b2c3d481",
			Name:                 "Mietitrebbia Smart MZ-150",
			CustomerID:           "c3",
			CustomerName:         "Fattoria Moderna SRL",
			OperationalStartDate: time.Date(2023, time.February, 10, 0, 0, 0, 0, time.UTC),
			TotalOperationHours:  1567,
			Status:               domain.StatusMaintenance,
		},
		{
			ID:                   "f47ac10b-58cc-4372-a567-0e02b2c3d482",
			Name:                 "Irrigatore Automatico IA-300",
			CustomerID:           "c1",
			CustomerName:         "Azienda Agricola Rossi",
			OperationalStartDate: time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC),
			TotalOperationHours:  2340,
			Status:               domain.StatusRunning,
		},
		{
			ID:                   "f47ac10b-58cc-4372-a567-0e02b2c3d483",
			Name:                 "Drone Sorveglianza DS-100",
			CustomerID:           "c4",
			CustomerName:         "Agritech Solutions",
			OperationalStartDate: time.Date(2023, time.June, 15, 0, 0, 0, 0, time.UTC),
			TotalOperationHours:  456,
			Status:               domain.StatusError,
			HasAnomalies:         true,
		},
	}
}
