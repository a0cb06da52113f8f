package core

import "fleetcore/pkg/domain"

type (
	EntityType    = domain.EntityType
	MachineStatus = domain.MachineStatus
	Severity      = domain.Severity
	Machine       = domain.Machine
	Customer      = domain.Customer
	Change        = domain.Change
	Action        = domain.Action
	Violation     = domain.Violation
	Result        = domain.Result
)

const (
	EntityMachine  = domain.EntityMachine
	EntityCustomer = domain.EntityCustomer
)

const (
	StatusRunning     = domain.StatusRunning
	StatusStopped     = domain.StatusStopped
	StatusMaintenance = domain.StatusMaintenance
	StatusError       = domain.StatusError
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
