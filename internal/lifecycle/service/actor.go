package service

import (
	"context"
	"fmt"
)

// Role token carried by the authenticated caller.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleProduction     Role = "production"
	RoleBetriebsleiter Role = "betriebsleiter"
	RoleQA             Role = "qa"
	RoleSales          Role = "sales"
	RoleLogistics      Role = "logistics"
	RoleViewer         Role = "viewer"
)

// Actor identifies who performs an operation. Every mutating call receives one explicitly.
type Actor struct {
	UserID string
	Name   string
	Role   Role
}

type roleSet []Role

func (s roleSet) contains(r Role) bool {
	for _, x := range s {
		if x == r {
			return true
		}
	}
	return false
}

var (
	processingRoles = roleSet{RoleAdmin, RoleProduction, RoleBetriebsleiter}
	samplingRoles   = roleSet{RoleAdmin, RoleProduction, RoleQA}
	outputRoles     = roleSet{RoleAdmin, RoleProduction, RoleBetriebsleiter}
	containerRoles  = roleSet{RoleAdmin, RoleProduction, RoleBetriebsleiter}
	allocationRoles = roleSet{RoleAdmin, RoleProduction, RoleBetriebsleiter, RoleSales}
	deliveryRoles   = roleSet{RoleAdmin, RoleProduction, RoleBetriebsleiter, RoleLogistics}
	intakeRoles     = roleSet{RoleAdmin, RoleProduction, RoleBetriebsleiter, RoleLogistics}
	orderRoles      = roleSet{RoleAdmin, RoleSales, RoleBetriebsleiter}
)

// authorize is a fast pre-check; row-level security in the store stays authoritative.
func authorize(actor Actor, allowed roleSet, action string) error {
	if allowed.contains(actor.Role) {
		return nil
	}
	return &Error{
		Kind:    KindPermissionDenied,
		Message: fmt.Sprintf("role %q may not %s", actor.Role, action),
	}
}

// Permission names returned to clients for UI gating.
const (
	PermIntakeWrite     = "intake:write"
	PermProcessingWrite = "processing:write"
	PermSamplingWrite   = "sampling:write"
	PermOutputWrite     = "output:write"
	PermContainerWrite  = "container:write"
	PermAllocationWrite = "allocation:write"
	PermDeliveryWrite   = "delivery:write"
	PermOrderWrite      = "order:write"
	PermLedgerRead      = "ledger:read"
)

// PermissionResolver yields the default permission set of a role.
type PermissionResolver interface {
	DefaultPermissions(ctx context.Context, role Role) ([]string, error)
}

// StaticPermissions derives defaults from the same role sets the services enforce.
type StaticPermissions struct{}

func (StaticPermissions) DefaultPermissions(_ context.Context, role Role) ([]string, error) {
	perms := []string{PermLedgerRead}
	table := []struct {
		perm  string
		roles roleSet
	}{
		{PermIntakeWrite, intakeRoles},
		{PermProcessingWrite, processingRoles},
		{PermSamplingWrite, samplingRoles},
		{PermOutputWrite, outputRoles},
		{PermContainerWrite, containerRoles},
		{PermAllocationWrite, allocationRoles},
		{PermDeliveryWrite, deliveryRoles},
		{PermOrderWrite, orderRoles},
	}
	for _, row := range table {
		if row.roles.contains(role) {
			perms = append(perms, row.perm)
		}
	}
	return perms, nil
}
