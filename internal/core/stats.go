package core

import (
	"math"
	"sort"
	"time"

	"fleetcore/pkg/domain"
)

// Fixed chart colors and labels per machine status.
var (
	statusColors = map[MachineStatus]string{
		StatusRunning:     "#4CAF50",
		StatusStopped:     "#FF9800",
		StatusMaintenance: "#2196F3",
		StatusError:       "#F44336",
	}
	statusLabels = map[MachineStatus]string{
		StatusRunning:     "In Funzione",
		StatusStopped:     "Ferme",
		StatusMaintenance: "Manutenzione",
		StatusError:       "Errore",
	}
)

const rankingSize = 5

// StatsEngine derives read-only fleet statistics from the store. Every
// call recomputes from the snapshots current at that instant; nothing
// is cached, so results are never stale and never fail. An empty fleet
// yields zero-valued output.
type StatsEngine struct {
	store *MemoryStore
	nowFn func() time.Time
}

// NewStatsEngine constructs a stats engine over the given store.
func NewStatsEngine(store *MemoryStore) *StatsEngine {
	return &StatsEngine{
		store: store,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the computation timestamp source. Intended for tests.
func (e *StatsEngine) SetClock(nowFn func() time.Time) {
	if nowFn != nil {
		e.nowFn = nowFn
	}
}

// EfficiencyScore rates a machine on a synthetic 0-100 scale derived
// from its status, anomaly flag and accumulated hours. Base score 85;
// running +10, anomalies -20, error -30, maintenance -5; +5 above 2000
// hours, otherwise +3 above 1000 hours; clamped to [0, 100].
func EfficiencyScore(m Machine) int {
	score := 85
	switch m.Status {
	case StatusRunning:
		score += 10
	case StatusError:
		score -= 30
	case StatusMaintenance:
		score -= 5
	}
	if m.HasAnomalies {
		score -= 20
	}
	switch {
	case m.TotalOperationHours > 2000:
		score += 5
	case m.TotalOperationHours > 1000:
		score += 3
	}
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// DashboardStats computes the aggregate fleet rollup: per-status and
// anomaly counts, summed hours, mean efficiency and the customer count.
func (e *StatsEngine) DashboardStats() domain.DashboardStats {
	machines := e.store.ListMachines()
	customers := e.store.ListCustomers()

	stats := domain.DashboardStats{
		TotalMachines:  len(machines),
		TotalCustomers: len(customers),
		LastUpdated:    e.nowFn(),
	}

	var efficiencySum int
	for _, m := range machines {
		switch m.Status {
		case StatusRunning:
			stats.RunningMachines++
		case StatusStopped:
			stats.StoppedMachines++
		case StatusMaintenance:
			stats.MaintenanceMachines++
		}
		if m.HasAnomalies {
			stats.MachinesWithAnomalies++
		}
		stats.TotalOperationHours += m.TotalOperationHours
		efficiencySum += EfficiencyScore(m)
	}
	if len(machines) > 0 {
		stats.AverageEfficiency = int(math.Round(float64(efficiencySum) / float64(len(machines))))
	}
	return stats
}

// StatusBreakdown reports per-status counts and rounded percentages in
// the fixed display order. An empty fleet yields an empty result.
func (e *StatsEngine) StatusBreakdown() []domain.StatusBreakdown {
	machines := e.store.ListMachines()
	if len(machines) == 0 {
		return nil
	}

	counts := make(map[MachineStatus]int, 4)
	for _, m := range machines {
		counts[m.Status]++
	}

	total := len(machines)
	out := make([]domain.StatusBreakdown, 0, 4)
	for _, status := range domain.MachineStatuses() {
		count := counts[status]
		out = append(out, domain.StatusBreakdown{
			Status:     status,
			Label:      statusLabels[status],
			Count:      count,
			Percentage: int(math.Round(float64(count) / float64(total) * 100)),
			Color:      statusColors[status],
		})
	}
	return out
}

// CriticalMachines ranks the machines needing attention: error status
// sorts before anomaly-only, ties keep snapshot order, and at most five
// entries are returned.
func (e *StatsEngine) CriticalMachines() []domain.CriticalMachine {
	machines := e.store.ListMachines()

	critical := make([]Machine, 0, len(machines))
	for _, m := range machines {
		if m.HasAnomalies || m.Status == StatusError {
			critical = append(critical, m)
		}
	}
	sort.SliceStable(critical, func(i, j int) bool {
		a, b := critical[i], critical[j]
		if (a.Status == StatusError) != (b.Status == StatusError) {
			return a.Status == StatusError
		}
		if a.HasAnomalies != b.HasAnomalies {
			return a.HasAnomalies
		}
		return false
	})
	if len(critical) > rankingSize {
		critical = critical[:rankingSize]
	}

	out := make([]domain.CriticalMachine, 0, len(critical))
	for _, m := range critical {
		out = append(out, domain.CriticalMachine{
			ID:           m.ID,
			Name:         m.Name,
			Customer:     m.CustomerName,
			Status:       m.Status,
			HasAnomalies: m.HasAnomalies,
			Criticality:  criticalityOf(m),
		})
	}
	return out
}

func criticalityOf(m Machine) domain.Criticality {
	switch {
	case m.Status == StatusError:
		return domain.CriticalityHigh
	case m.HasAnomalies:
		return domain.CriticalityMedium
	default:
		return domain.CriticalityLow
	}
}

// TopPerformingMachines ranks machines by accumulated operation hours,
// descending, stable on ties, at most five entries.
func (e *StatsEngine) TopPerformingMachines() []domain.TopMachine {
	machines := e.store.ListMachines()

	ranked := append([]Machine(nil), machines...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalOperationHours > ranked[j].TotalOperationHours
	})
	if len(ranked) > rankingSize {
		ranked = ranked[:rankingSize]
	}

	out := make([]domain.TopMachine, 0, len(ranked))
	for _, m := range ranked {
		out = append(out, domain.TopMachine{
			ID:         m.ID,
			Name:       m.Name,
			Customer:   m.CustomerName,
			TotalHours: m.TotalOperationHours,
			Status:     m.Status,
			Efficiency: EfficiencyScore(m),
		})
	}
	return out
}

// CustomerRollups aggregates the fleet per owning customer, sorted by
// machine count descending, stable on ties.
func (e *StatsEngine) CustomerRollups() []domain.CustomerRollup {
	machines := e.store.ListMachines()
	customers := e.store.ListCustomers()

	out := make([]domain.CustomerRollup, 0, len(customers))
	for _, c := range customers {
		rollup := domain.CustomerRollup{ID: c.ID, Name: c.Name}
		for _, m := range machines {
			if m.CustomerID != c.ID {
				continue
			}
			rollup.TotalMachines++
			if m.Status == StatusRunning {
				rollup.RunningMachines++
			}
			rollup.TotalHours += m.TotalOperationHours
			if m.HasAnomalies {
				rollup.HasAnomalies = true
			}
		}
		out = append(out, rollup)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalMachines > out[j].TotalMachines
	})
	return out
}
