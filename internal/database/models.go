package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, j)
}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// StringList is a JSON-encoded list of strings (tags, recipients, channels)
type StringList []string

// Scan implements the sql.Scanner interface
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}
	return json.Unmarshal(bytes, l)
}

// Value implements the driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

// SubscriptionTier represents an organization's plan
type SubscriptionTier string

const (
	TierStarter      SubscriptionTier = "starter"
	TierProfessional SubscriptionTier = "professional"
	TierEnterprise   SubscriptionTier = "enterprise"
)

// IsValidSubscriptionTier checks whether s is a known tier tag
func IsValidSubscriptionTier(s string) bool {
	switch SubscriptionTier(s) {
	case TierStarter, TierProfessional, TierEnterprise:
		return true
	}
	return false
}

// PipelineLimit returns the maximum number of pipelines for the tier.
// Enterprise is unlimited (-1).
func (t SubscriptionTier) PipelineLimit() int {
	switch t {
	case TierProfessional:
		return 50
	case TierEnterprise:
		return -1
	default:
		return 10
	}
}

// Organization is a tenant. Every domain record carries its organization ID
// and all lookups are scoped to it.
type Organization struct {
	ID               uint             `gorm:"primaryKey" json:"id"`
	Name             string           `gorm:"size:255;not null" json:"name"`
	Slug             string           `gorm:"uniqueIndex;size:128;not null" json:"slug"`
	Domain           string           `gorm:"size:255" json:"domain"`
	SubscriptionTier SubscriptionTier `gorm:"type:varchar(50);not null;default:'starter'" json:"subscription_tier"`
	IsActive         bool             `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	// Relationships
	Settings *OrganizationSettings `gorm:"foreignKey:OrganizationID" json:"settings,omitempty"`
	Users    []User                `gorm:"foreignKey:OrganizationID" json:"users,omitempty"`
}

func (Organization) TableName() string {
	return "organizations"
}

// OrganizationSettings holds per-tenant monitoring defaults
type OrganizationSettings struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	OrganizationID         uint       `gorm:"uniqueIndex;not null" json:"organization_id"`
	DefaultAlertChannels   StringList `gorm:"type:text" json:"default_alert_channels"`
	// Defaults are applied in code at registration time; column defaults
	// would clobber an explicit zero (cooldown off, immediate escalation).
	DefaultCooldownMinutes int        `json:"default_cooldown_minutes"`
	EscalationEnabled      bool       `gorm:"default:false" json:"escalation_enabled"`
	EscalationDelayMinutes int        `json:"escalation_delay_minutes"`
	CheckIntervalSeconds   int        `gorm:"default:300" json:"check_interval_seconds"`
	RetentionDays          int        `gorm:"default:90" json:"retention_days"`
	Timezone               string     `gorm:"size:64;default:'UTC'" json:"timezone"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

func (OrganizationSettings) TableName() string {
	return "organization_settings"
}

// RoleName identifies one of the built-in roles
type RoleName string

const (
	RoleAdmin   RoleName = "admin"
	RoleManager RoleName = "manager"
	RoleAnalyst RoleName = "analyst"
	RoleViewer  RoleName = "viewer"
)

// IsValidRoleName checks whether s is a known role tag
func IsValidRoleName(s string) bool {
	switch RoleName(s) {
	case RoleAdmin, RoleManager, RoleAnalyst, RoleViewer:
		return true
	}
	return false
}

// Role is a named permission set shared by all tenants
type Role struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        RoleName   `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string     `gorm:"size:255" json:"description"`
	Permissions StringList `gorm:"type:text" json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Role) TableName() string {
	return "roles"
}

// HasPermission reports whether the role grants the named permission.
// An "*" entry grants everything.
func (r *Role) HasPermission(perm string) bool {
	for _, p := range r.Permissions {
		if p == "*" || p == perm {
			return true
		}
	}
	return false
}

// User is an account inside an organization
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Email          string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Username       string     `gorm:"uniqueIndex;size:128;not null" json:"username"`
	PasswordHash   string     `gorm:"type:text;not null" json:"-"`
	FirstName      string     `gorm:"size:128" json:"first_name"`
	LastName       string     `gorm:"size:128" json:"last_name"`
	IsActive       bool       `gorm:"default:true" json:"is_active"`
	IsVerified     bool       `gorm:"default:false" json:"is_verified"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	RoleID         uint       `gorm:"not null;index" json:"role_id"`
	OrganizationID uint       `gorm:"not null;index" json:"organization_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Relationships
	Role         Role         `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// FullName returns the display name, falling back to the username
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
