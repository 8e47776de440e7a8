package entities

import "time"

// Team roles
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Account is a tenant: one company with its widget, catalog and team.
type Account struct {
	ID          string    `json:"id"`
	CompanyName string    `json:"company_name"`
	WidgetKey   string    `json:"widget_key"`
	CreatedAt   time.Time `json:"created_at"`
}

type User struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserProfile is the user as returned to the dashboard.
type UserProfile struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	CompanyName  string `json:"company_name"`
	WidgetKey    string `json:"widget_key"`
	Role         string `json:"role"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

// TeamMember is an invitation or a joined member of an account.
type TeamMember struct {
	ID        string     `json:"id"`
	AccountID string     `json:"-"`
	UserID    *string    `json:"user_id,omitempty"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	InvitedAt time.Time  `json:"invited_at"`
	JoinedAt  *time.Time `json:"joined_at"`
}

const (
	MemberInvited = "invited"
	MemberActive  = "active"
)

// AdminUserView is a user row in the super admin panel.
type AdminUserView struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Email        string    `json:"email"`
	CompanyName  string    `json:"company_name"`
	Role         string    `json:"role"`
	IsSuperAdmin bool      `json:"is_super_admin"`
	WidgetKey    string    `json:"widget_key"`
	CreatedAt    time.Time `json:"created_at"`
}
