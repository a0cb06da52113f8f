package core

import (
	"context"
	"math/rand"
	"time"

	"fleetcore/pkg/domain"

	"go.uber.org/zap"
)

// Simulator defaults.
const (
	DefaultSimulatorInterval = 30 * time.Second
	defaultFlipProbability   = 0.10
	defaultAnomalyChance     = 0.20
)

// SimulatorConfig tunes the background fleet mutator.
type SimulatorConfig struct {
	// Interval between passes. Defaults to 30s.
	Interval time.Duration
	// FlipProbability is the per-machine chance of a status change on
	// each pass. Defaults to 0.10.
	FlipProbability float64
	// AnomalyChance is the chance of flagging an anomaly on a status
	// change that did not land on error. Defaults to 0.20.
	AnomalyChance float64
	// Seed makes the random sequence deterministic when non-zero.
	Seed int64
}

func (c SimulatorConfig) withDefaults() SimulatorConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultSimulatorInterval
	}
	if c.FlipProbability <= 0 {
		c.FlipProbability = defaultFlipProbability
	}
	if c.AnomalyChance <= 0 {
		c.AnomalyChance = defaultAnomalyChance
	}
	return c
}

// Simulator perturbs machine state on a fixed interval so the dashboard
// looks like a live fleet. It is cosmetic only: each pass flips a small
// random subset of machines to a uniformly random status, flags
// anomalies, and accrues hours on machines that stay running. Passes
// commit through the store's transactional path, so subscribers and
// advisory rules see simulator changes like any user mutation.
type Simulator struct {
	store  *MemoryStore
	cfg    SimulatorConfig
	rng    *rand.Rand
	logger *zap.Logger
}

// NewSimulator constructs a simulator over the given store.
func NewSimulator(store *MemoryStore, cfg SimulatorConfig, logger *zap.Logger) *Simulator {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	source := rand.NewSource(time.Now().UnixNano())
	if cfg.Seed != 0 {
		source = rand.NewSource(cfg.Seed)
	}
	return &Simulator{
		store:  store,
		cfg:    cfg,
		rng:    rand.New(source),
		logger: logger,
	}
}

// Run executes passes on the configured interval until ctx is done.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Step(ctx); err != nil {
				s.logger.Warn("simulator pass failed", zap.Error(err))
			}
		}
	}
}

// Step runs a single simulation pass as one transaction. For each
// machine, one probability draw decides whether its status is replaced
// by a uniformly random one; the anomaly flag follows the new status
// (always on error, otherwise an independent draw); hours accrue only
// when the machine was and stays running.
func (s *Simulator) Step(ctx context.Context) error {
	statuses := domain.MachineStatuses()
	res, err := s.store.RunInTransaction(ctx, func(tx *Transaction) error {
		for _, machine := range tx.Snapshot().ListMachines() {
			if s.rng.Float64() >= s.cfg.FlipProbability {
				continue
			}
			newStatus := statuses[s.rng.Intn(len(statuses))]
			anomalous := newStatus == StatusError || s.rng.Float64() < s.cfg.AnomalyChance
			increment := s.rng.Float64() * 2
			wasRunning := machine.Status == StatusRunning

			if _, err := tx.UpdateMachine(machine.ID, func(m *Machine) error {
				m.Status = newStatus
				m.HasAnomalies = anomalous
				if wasRunning && newStatus == StatusRunning {
					m.TotalOperationHours += increment
				}
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, v := range res.Warnings() {
		s.logger.Debug("simulator rule warning",
			zap.String("rule", v.Rule),
			zap.String("entity_id", v.EntityID),
			zap.String("message", v.Message),
		)
	}
	return nil
}
