// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role identifies the kind of account
type Role string

const (
	RoleBuyer    Role = "buyer"
	RoleSupplier Role = "supplier"
	RoleAdmin    Role = "admin"
)

// User represents a marketplace account. Buyers are certified
// purchasing professionals and must be approved before they can place
// orders; suppliers own products and fulfil the orders created for them.
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Email         string     `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password      string     `gorm:"not null;size:255" json:"-"` // Don't return in JSON
	FirstName     string     `gorm:"size:100" json:"first_name"`
	LastName      string     `gorm:"size:100" json:"last_name"`
	Phone         string     `gorm:"size:20" json:"phone"`
	Role          Role       `gorm:"size:20;not null;default:'buyer'" json:"role"`
	CompanyName   string     `gorm:"size:255" json:"company_name"`
	LicenseNumber string     `gorm:"size:100" json:"license_number"` // professional certification
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	IsApproved    bool       `gorm:"default:false" json:"is_approved"`
	ApprovedAt    *time.Time `json:"approved_at"`
	LastLoginAt   *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Addresses []Address `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"addresses,omitempty"`
}

// Address represents a delivery address in the Brazilian layout the
// checkout consumes. The postal code is stored digits-only.
type Address struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	Label        string    `gorm:"size:50" json:"label"`
	Street       string    `gorm:"size:255;not null" json:"street"`
	Number       string    `gorm:"size:20;not null" json:"number"`
	Complement   string    `gorm:"size:100" json:"complement"`
	Neighborhood string    `gorm:"size:100" json:"neighborhood"`
	City         string    `gorm:"size:100;not null" json:"city"`
	State        string    `gorm:"size:2;not null" json:"state"`
	PostalCode   string    `gorm:"size:8;not null" json:"postal_code"`
	IsDefault    bool      `gorm:"default:false" json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// TableName overrides the table name for Address
func (Address) TableName() string {
	return "addresses"
}

// BeforeCreate hook to handle business logic before user creation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	// Email should be lowercase
	u.Email = strings.ToLower(u.Email)
	return nil
}

// GetFullName returns the user's full name
func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// GetDisplayName returns display name (company, full name or email)
func (u *User) GetDisplayName() string {
	if u.CompanyName != "" {
		return u.CompanyName
	}
	if fullName := u.GetFullName(); fullName != "" {
		return fullName
	}
	return u.Email
}

// CanPurchase reports whether the account may go through checkout
func (u *User) CanPurchase() bool {
	return u.IsActive && u.IsApproved && u.Role == RoleBuyer
}
