package core

import "fleetcore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy
// set. Every built-in rule is advisory: the fleet keeps the permissive
// status model, so nothing in the default set blocks a commit.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(StatusTransitionRule())
	engine.Register(OwnerIntegrityRule())
	return engine
}
