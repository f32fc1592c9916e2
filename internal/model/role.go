package model

import "strings"

// Role classifies a principal. Capabilities are derived from it, never
// from ad-hoc group checks.
type Role string

const (
	RoleAnonymous          Role = "ANONYMOUS"
	RoleCustomer           Role = "CUSTOMER"
	RoleTicketOffice       Role = "TICKET_OFFICE"
	RoleProgrammingManager Role = "PROGRAMMING_MANAGER"
	RoleAdmin              Role = "ADMIN"
)

// ParseRole maps a stored or token role name to a Role. Unknown names are
// treated as anonymous.
func ParseRole(s string) Role {
	switch r := Role(strings.ToUpper(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleTicketOffice, RoleProgrammingManager, RoleAdmin:
		return r
	}
	return RoleAnonymous
}

func (r Role) String() string { return string(r) }

// Authenticated is false only for anonymous visitors.
func (r Role) Authenticated() bool { return r != RoleAnonymous && r != "" }

// IsStaffOperational covers everybody working the box office or the
// programme: they book for walk-in customers and are not subject to the
// per-customer seat cap.
func (r Role) IsStaffOperational() bool {
	return r == RoleTicketOffice || r == RoleProgrammingManager || r == RoleAdmin
}

// IsCustomer reports an authenticated non-staff principal.
func (r Role) IsCustomer() bool { return r.Authenticated() && !r.IsStaffOperational() }

func (r Role) CanManageProgramming() bool { return r == RoleProgrammingManager || r == RoleAdmin }

func (r Role) CanBookForWalkIn() bool { return r.IsStaffOperational() }

func (r Role) CanCancelAnyReservation() bool { return r.IsStaffOperational() }

func (r Role) CanMarkPaid() bool { return r.IsStaffOperational() }

// Principal is the authenticated caller as seen by the booking engine.
type Principal struct {
	UserID uint64
	Role   Role
	Member bool
}

// Staff is shorthand for p.Role.IsStaffOperational().
func (p Principal) Staff() bool { return p.Role.IsStaffOperational() }
