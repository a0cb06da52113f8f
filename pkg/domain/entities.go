// Package domain defines the fleet entities, derived statistics value
// types, and rule evaluation primitives used by fleetcore.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the fleet core.
type EntityType string

// Supported entity type identifiers used in Change records.
const (
	// EntityMachine identifies an agricultural machine record.
	EntityMachine EntityType = "machine"
	// EntityCustomer identifies a customer record.
	EntityCustomer EntityType = "customer"
)

// MachineStatus represents the canonical operational state of a machine.
type MachineStatus string

// Canonical machine statuses. No transition table is enforced by the
// store; any status may follow any other.
const (
	StatusRunning     MachineStatus = "running"
	StatusStopped     MachineStatus = "stopped"
	StatusMaintenance MachineStatus = "maintenance"
	StatusError       MachineStatus = "error"
)

// MachineStatuses lists all statuses in their fixed display order.
func MachineStatuses() []MachineStatus {
	return []MachineStatus{StatusRunning, StatusStopped, StatusMaintenance, StatusError}
}

// Valid reports whether the status is one of the canonical values.
func (s MachineStatus) Valid() bool {
	switch s {
	case StatusRunning, StatusStopped, StatusMaintenance, StatusError:
		return true
	}
	return false
}

// Machine is a single machine of the managed fleet. CustomerName is a
// denormalized display cache of the owning customer's name; the service
// layer refreshes it on writes but the store does not enforce that the
// reference stays valid.
type Machine struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	CustomerID           string        `json:"customer_id"`
	CustomerName         string        `json:"customer_name"`
	OperationalStartDate time.Time     `json:"operational_start_date"`
	TotalOperationHours  float64       `json:"total_operation_hours"`
	Status               MachineStatus `json:"status"`
	HasAnomalies         bool          `json:"has_anomalies"`
	Icon                 string        `json:"icon,omitempty"`
}

// MachineDetails extends a machine with the synthesized fields shown in
// the detail view.
type MachineDetails struct {
	Machine
	SerialNumber        string    `json:"serial_number"`
	Model               string    `json:"model"`
	LastMaintenanceDate time.Time `json:"last_maintenance_date"`
	NextMaintenanceDate time.Time `json:"next_maintenance_date"`
	Efficiency          int       `json:"efficiency"`
}

// Customer is an owning customer of one or more machines. VATNumber is
// intended to be unique but uniqueness is advisory, checked by the
// service, never enforced transactionally.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	VATNumber string    `json:"vat_number"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DashboardStats is a derived snapshot of the whole fleet. It is always
// recomputed from store state and never persisted as ground truth.
type DashboardStats struct {
	TotalMachines         int       `json:"total_machines"`
	RunningMachines       int       `json:"running_machines"`
	StoppedMachines       int       `json:"stopped_machines"`
	MaintenanceMachines   int       `json:"maintenance_machines"`
	MachinesWithAnomalies int       `json:"machines_with_anomalies"`
	TotalCustomers        int       `json:"total_customers"`
	TotalOperationHours   float64   `json:"total_operation_hours"`
	AverageEfficiency     int       `json:"average_efficiency"`
	LastUpdated           time.Time `json:"last_updated"`
}

// StatusBreakdown reports the share of the fleet in one status, with the
// fixed chart color and label attached.
type StatusBreakdown struct {
	Status     MachineStatus `json:"status"`
	Label      string        `json:"label"`
	Count      int           `json:"count"`
	Percentage int           `json:"percentage"`
	Color      string        `json:"color"`
}

// Criticality grades an entry of the critical machines ranking.
type Criticality string

// Criticality grades, highest first.
const (
	CriticalityHigh   Criticality = "high"
	CriticalityMedium Criticality = "medium"
	CriticalityLow    Criticality = "low"
)

// CriticalMachine is one entry of the critical machines ranking.
type CriticalMachine struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Customer     string        `json:"customer"`
	Status       MachineStatus `json:"status"`
	HasAnomalies bool          `json:"has_anomalies"`
	Criticality  Criticality   `json:"criticality"`
}

// TopMachine is one entry of the top performing machines ranking.
type TopMachine struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Customer   string        `json:"customer"`
	TotalHours float64       `json:"total_hours"`
	Status     MachineStatus `json:"status"`
	Efficiency int           `json:"efficiency"`
}

// CustomerRollup aggregates the machines owned by one customer.
type CustomerRollup struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	TotalMachines   int     `json:"total_machines"`
	RunningMachines int     `json:"running_machines"`
	TotalHours      float64 `json:"total_hours"`
	HasAnomalies    bool    `json:"has_anomalies"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before ChangePayload
	After  ChangePayload
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the CRUD operations captured per transaction.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the violations at warn or log severity.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity != SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

// NotFoundError signals that a mutation targeted an absent entity.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
