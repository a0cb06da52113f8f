package core

import (
	"context"
	"fmt"

	"fleetcore/pkg/domain"
)

// StatusTransitionRule flags suspicious machine status changes without
// blocking them. Any status may follow any other; the rule only warns
// when a machine leaves maintenance straight into running, and when a
// status value is not one of the canonical four.
func StatusTransitionRule() domain.Rule {
	return statusTransitionRule{}
}

type statusTransitionRule struct{}

func (statusTransitionRule) Name() string { return "status_transition" }

func (statusTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityMachine {
			continue
		}

		after, ok := decodeChangePayload[domain.Machine](change.After)
		if !ok {
			continue
		}
		if !after.Status.Valid() {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "status_transition",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("machine %s is set to unknown status %q", after.ID, after.Status),
				Entity:   domain.EntityMachine,
				EntityID: after.ID,
			})
			continue
		}

		before, ok := decodeChangePayload[domain.Machine](change.Before)
		if !ok {
			continue
		}
		if before.Status == domain.StatusMaintenance && after.Status == domain.StatusRunning {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "status_transition",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("machine %s moved from maintenance to running without an intermediate check", after.ID),
				Entity:   domain.EntityMachine,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
