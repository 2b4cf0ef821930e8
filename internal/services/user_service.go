package services

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"gorm.io/gorm"

	"github.com/pipewatch/pipewatch/internal/alerts"
	"github.com/pipewatch/pipewatch/internal/api"
	"github.com/pipewatch/pipewatch/internal/database"
	"github.com/pipewatch/pipewatch/internal/middleware"
)

// UserService handles registration, authentication and user management
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// CheckPasswordStrength rejects passwords missing length or character
// class requirements.
func CheckPasswordStrength(password string) error {
	if len(password) < 8 {
		return alerts.NewValidationError("password", "must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return alerts.NewValidationError("password", "must contain upper case, lower case and digit characters")
	}
	return nil
}

// RegisterOrganization creates a tenant, its default settings and the
// first admin user in one transaction.
func (s *UserService) RegisterOrganization(req *api.RegisterRequest) (*database.Organization, *database.User, error) {
	if err := CheckPasswordStrength(req.Password); err != nil {
		return nil, nil, err
	}

	slug := strings.ToLower(strings.TrimSpace(req.OrganizationSlug))

	var count int64
	if err := s.db.Model(&database.Organization{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return nil, nil, err
	}
	if count > 0 {
		return nil, nil, alerts.NewValidationError("organization_slug", "slug %q is already taken", slug)
	}

	adminRole, err := database.GetRoleByName(s.db, database.RoleAdmin)
	if err != nil {
		return nil, nil, err
	}

	hash, err := middleware.HashPassword(req.Password)
	if err != nil {
		return nil, nil, err
	}

	org := &database.Organization{
		Name:             req.OrganizationName,
		Slug:             slug,
		SubscriptionTier: database.TierStarter,
		IsActive:         true,
	}
	user := &database.User{
		Email:     strings.ToLower(req.Email),
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  true,
		RoleID:    adminRole.ID,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(org).Error; err != nil {
			return err
		}
		settings := &database.OrganizationSettings{
			OrganizationID:         org.ID,
			DefaultAlertChannels:   database.StringList{string(database.ChannelInApp)},
			DefaultCooldownMinutes: 60,
			EscalationDelayMinutes: 30,
			CheckIntervalSeconds:   300,
			RetentionDays:          90,
			Timezone:               "UTC",
		}
		if err := tx.Create(settings).Error; err != nil {
			return err
		}
		user.OrganizationID = org.ID
		user.PasswordHash = hash
		return tx.Create(user).Error
	})
	if err != nil {
		return nil, nil, err
	}

	user.Role = *adminRole
	return org, user, nil
}

// ErrInvalidCredentials is returned when authentication fails. The caller
// must not distinguish unknown accounts from wrong passwords.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Authenticate checks credentials and stamps the last login time
func (s *UserService) Authenticate(email, password string) (*database.User, error) {
	var user database.User
	err := s.db.Preload("Role").
		Where("email = ? AND is_active = ?", strings.ToLower(email), true).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !middleware.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	return &user, nil
}

// GetUser returns a user within the organization
func (s *UserService) GetUser(orgID, userID uint) (*database.User, error) {
	var user database.User
	err := s.db.Preload("Role").
		Where("id = ? AND organization_id = ?", userID, orgID).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, alerts.NewNotFoundError("user", userID)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns the organization's users with pagination
func (s *UserService) ListUsers(orgID uint, p api.PaginationParams) ([]database.User, int64, error) {
	var total int64
	q := s.db.Model(&database.User{}).Where("organization_id = ?", orgID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []database.User
	err := s.db.Preload("Role").
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Offset(p.Offset()).Limit(p.PerPage).
		Find(&users).Error
	return users, total, err
}

// CreateUser adds a user to the organization
func (s *UserService) CreateUser(orgID uint, req *api.CreateUserRequest) (*database.User, error) {
	if !database.IsValidRoleName(req.Role) {
		return nil, alerts.NewValidationError("role", "unknown role %q", req.Role)
	}
	if err := CheckPasswordStrength(req.Password); err != nil {
		return nil, err
	}

	role, err := database.GetRoleByName(s.db, database.RoleName(req.Role))
	if err != nil {
		return nil, err
	}

	hash, err := middleware.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &database.User{
		Email:          strings.ToLower(req.Email),
		Username:       req.Username,
		PasswordHash:   hash,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		IsActive:       true,
		RoleID:         role.ID,
		OrganizationID: orgID,
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	user.Role = *role
	return user, nil
}

// UpdateUser applies a partial update to a user within the organization
func (s *UserService) UpdateUser(orgID, userID uint, req *api.UpdateUserRequest) (*database.User, error) {
	user, err := s.GetUser(orgID, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Role != nil {
		if !database.IsValidRoleName(*req.Role) {
			return nil, alerts.NewValidationError("role", "unknown role %q", *req.Role)
		}
		role, err := database.GetRoleByName(s.db, database.RoleName(*req.Role))
		if err != nil {
			return nil, err
		}
		updates["role_id"] = role.ID
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetUser(orgID, userID)
}

// UpdateProfile lets a user change their own name or password
func (s *UserService) UpdateProfile(orgID, userID uint, req *api.UpdateProfileRequest) (*database.User, error) {
	user, err := s.GetUser(orgID, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Password != nil {
		if err := CheckPasswordStrength(*req.Password); err != nil {
			return nil, err
		}
		hash, err := middleware.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetUser(orgID, userID)
}

// DeactivateUser disables an account without deleting its records
func (s *UserService) DeactivateUser(orgID, userID uint) error {
	user, err := s.GetUser(orgID, userID)
	if err != nil {
		return err
	}
	return s.db.Model(user).Update("is_active", false).Error
}

// ListRoles returns the built-in roles, shared by all tenants
func (s *UserService) ListRoles() ([]database.Role, error) {
	var roles []database.Role
	if err := s.db.Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

// GetOrganization returns the tenant record with its settings
func (s *UserService) GetOrganization(orgID uint) (*database.Organization, error) {
	var org database.Organization
	err := s.db.Preload("Settings").First(&org, orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, alerts.NewNotFoundError("organization", orgID)
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}
