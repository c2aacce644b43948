package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAgent Role = "AGENT"
	RoleAdmin Role = "ADMIN"
)

// ActiveState applies to USER accounts only.
type ActiveState string

const (
	ActiveBlocked   ActiveState = "BLOCKED"
	ActiveUnblocked ActiveState = "UNBLOCKED"
)

// ApprovalState applies to AGENT accounts only.
type ApprovalState string

const (
	ApprovalPending   ApprovalState = "PENDING"
	ApprovalApproved  ApprovalState = "APPROVED"
	ApprovalSuspended ApprovalState = "SUSPENDED"
)

// Account is a user, agent, or admin identity. ActiveState,
// ApprovalState and CommissionRate are nil unless the role uses them.
type Account struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Phone          string           `json:"phone"`
	NIDNumber      string           `json:"nid_number"`
	PasswordHash   string           `json:"-"`
	Role           Role             `json:"role"`
	ActiveState    *ActiveState     `json:"active_state,omitempty"`
	ApprovalState  *ApprovalState   `json:"approval_state,omitempty"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
	Verified       bool             `json:"verified"`
	Deleted        bool             `json:"deleted"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Operable reports whether the account may act or be acted upon through
// normal flows: not blocked, not suspended, not soft-deleted.
func (a *Account) Operable() bool {
	if a.Deleted {
		return false
	}
	if a.ActiveState != nil && *a.ActiveState == ActiveBlocked {
		return false
	}
	if a.ApprovalState != nil && *a.ApprovalState == ApprovalSuspended {
		return false
	}
	return true
}

// RegisterRequest is the self-registration payload. Only USER and AGENT
// may register through this path.
type RegisterRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	NIDNumber string `json:"nid_number"`
	Password  string `json:"password"`
	Role      Role   `json:"role"`
}

// UpdateAccountRequest is a partial account patch. Nil fields are left
// untouched. Privileged fields require an ADMIN caller.
type UpdateAccountRequest struct {
	Name           *string          `json:"name,omitempty"`
	Email          *string          `json:"email,omitempty"`
	Phone          *string          `json:"phone,omitempty"`
	NIDNumber      *string          `json:"nid_number,omitempty"`
	Password       *string          `json:"password,omitempty"`
	ActiveState    *ActiveState     `json:"active_state,omitempty"`
	ApprovalState  *ApprovalState   `json:"approval_state,omitempty"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
	Verified       *bool            `json:"verified,omitempty"`
	Deleted        *bool            `json:"deleted,omitempty"`
}

// TouchesPrivileged reports whether the patch sets any admin-only field.
func (r *UpdateAccountRequest) TouchesPrivileged() bool {
	return r.ActiveState != nil || r.ApprovalState != nil ||
		r.CommissionRate != nil || r.Verified != nil || r.Deleted != nil
}

// TouchesIdentity reports whether the patch sets any identity field.
func (r *UpdateAccountRequest) TouchesIdentity() bool {
	return r.Name != nil || r.Email != nil || r.Phone != nil ||
		r.NIDNumber != nil || r.Password != nil
}

// AccountFilter drives the admin directory listing. Enumerated fields
// only; arbitrary query keys are not accepted.
type AccountFilter struct {
	Role          Role
	Search        string // matches name, email, phone, nid
	ActiveState   ActiveState
	ApprovalState ApprovalState
	Verified      *bool
	Deleted       *bool
	SortBy        string // created_at | name | email
	SortDesc      bool
	Page          int
	Limit         int
}

// AccountCounts is the per-status breakdown returned with listings.
type AccountCounts struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active,omitempty"`
	Blocked   int64 `json:"blocked,omitempty"`
	Approved  int64 `json:"approved,omitempty"`
	Suspended int64 `json:"suspended,omitempty"`
	Verified  int64 `json:"verified"`
	Deleted   int64 `json:"deleted"`
}
