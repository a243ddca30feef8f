package domain

import "time"

// UserRole distinguishes what a user may do inside their company.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleManager  UserRole = "manager"
	RoleEmployee UserRole = "employee"
)

// CanApprove reports whether the role is allowed to vote on expenses at all.
// Eligibility for a concrete expense is decided by the approval engine.
func (r UserRole) CanApprove() bool {
	return r == RoleAdmin || r == RoleManager
}

// User represents an account inside a company.
//
// ManagerID forms a tree via self-reference: employees report to exactly one
// manager or none. A user is never its own manager, and manager assignment is
// only valid while Role is RoleEmployee.
type User struct {
	UserID       string   `json:"userID"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Role         UserRole `json:"role"`
	CompanyID    string   `json:"companyID"`
	ManagerID    *string  `json:"managerID,omitempty"`
	PasswordHash string   `json:"-"`
	AuditFields
	DeletedAt *time.Time `json:"deletedAt,omitempty"` // Used for soft delete

	// Refresh token fields
	RefreshTokenHash       string     `json:"-"`
	RefreshTokenExpiryTime *time.Time `json:"-"`
}

// GoogleUserInfo mirrors the payload returned by Google's userinfo endpoint.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}
