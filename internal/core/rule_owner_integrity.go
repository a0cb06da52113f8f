package core

import (
	"context"
	"fmt"

	"fleetcore/pkg/domain"
)

// OwnerIntegrityRule surfaces machines whose customer reference no
// longer resolves. Deleting a customer neither cascades nor blocks, so
// orphaned references are legal; this rule reports them at warn
// severity whenever a change could have produced one.
func OwnerIntegrityRule() domain.Rule {
	return ownerIntegrityRule{}
}

type ownerIntegrityRule struct{}

func (ownerIntegrityRule) Name() string { return "owner_integrity" }

func (ownerIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		switch change.Entity {
		case domain.EntityMachine:
			machine, ok := decodeChangePayload[domain.Machine](change.After)
			if !ok || machine.CustomerID == "" {
				continue
			}
			if _, found := view.FindCustomer(machine.CustomerID); !found {
				res.Violations = append(res.Violations, violationFor(machine))
			}
		case domain.EntityCustomer:
			if change.Action != domain.ActionDelete {
				continue
			}
			deleted, ok := decodeChangePayload[domain.Customer](change.Before)
			if !ok {
				continue
			}
			for _, machine := range view.ListMachines() {
				if machine.CustomerID == deleted.ID {
					res.Violations = append(res.Violations, violationFor(machine))
				}
			}
		}
	}
	return res, nil
}

func violationFor(machine domain.Machine) domain.Violation {
	return domain.Violation{
		Rule:     "owner_integrity",
		Severity: domain.SeverityWarn,
		Message:  fmt.Sprintf("machine %s references missing customer %s", machine.ID, machine.CustomerID),
		Entity:   domain.EntityMachine,
		EntityID: machine.ID,
	}
}
