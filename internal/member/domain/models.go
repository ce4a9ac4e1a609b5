// Package domain contains persistence models for merchant members, the people
// (staff, merchant owners, customers) behind memberships.
package domain

import (
	"time"
)

// Role tags a member for permission checks and query filters.
type Role string

const (
	RoleStaff    Role = "staff"
	RoleMerchant Role = "merchant"
	RoleCustomer Role = "customer"
)

// MerchantMember is a person. Staff belong to exactly one merchant; customers
// may hold memberships with many merchants.
type MerchantMember struct {
	ID           string    `gorm:"primaryKey;type:varchar(40)" json:"id"`
	Code         string    `gorm:"uniqueIndex;type:varchar(10);not null" json:"code"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	CNIC         string    `gorm:"type:varchar(15)" json:"cnic,omitempty"`
	PrimaryPhone string    `gorm:"uniqueIndex;type:varchar(15);not null" json:"primary_phone"`
	PictureURL   string    `gorm:"type:text" json:"picture_url,omitempty"`
	MerchantID   string    `gorm:"index;type:varchar(40)" json:"merchant_id,omitempty"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Roles []MemberRole `gorm:"foreignKey:MemberID" json:"roles,omitempty"`
}

// TableName sets the database table name.
func (MerchantMember) TableName() string { return "merchant_members" }

// HasRole reports whether the member carries the given role.
func (m MerchantMember) HasRole(role Role) bool {
	for _, r := range m.Roles {
		if r.Role == role {
			return true
		}
	}
	return false
}

// MemberRole is one role row for a member.
type MemberRole struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	MemberID  string    `gorm:"index;type:varchar(40);not null;uniqueIndex:ux_member_roles_member_role,priority:1" json:"-"`
	Role      Role      `gorm:"type:varchar(15);not null;uniqueIndex:ux_member_roles_member_role,priority:2" json:"role"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (MemberRole) TableName() string { return "member_roles" }
