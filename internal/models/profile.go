package models

import "time"

// Role is the RBAC role stored on a profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ProfileStatus describes whether an account may sign in.
type ProfileStatus string

const (
	ProfileStatusActive    ProfileStatus = "active"
	ProfileStatusSuspended ProfileStatus = "suspended"
	ProfileStatusPending   ProfileStatus = "pending"
)

// Valid reports whether s is a known profile status.
func (s ProfileStatus) Valid() bool {
	switch s {
	case ProfileStatusActive, ProfileStatusSuspended, ProfileStatusPending:
		return true
	}
	return false
}

// Profile is a marketplace account stored in the profiles table.
type Profile struct {
	ID           string        `db:"id" json:"id"`
	Email        string        `db:"email" json:"email"`
	PasswordHash string        `db:"password_hash" json:"-"`
	FullName     string        `db:"full_name" json:"full_name"`
	University   *string       `db:"university" json:"university,omitempty"`
	Role         Role          `db:"role" json:"role"`
	Status       ProfileStatus `db:"status" json:"status"`
	LastLogin    *time.Time    `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// ProfileSummary is the admin users table row.
type ProfileSummary struct {
	Profile
	Uploads   int `db:"uploads" json:"uploads"`
	Downloads int `db:"downloads" json:"downloads"`
}

// ProfileFilter captures admin users table criteria.
type ProfileFilter struct {
	Search   string
	Status   string
	Page     int
	PageSize int
}

// UpdateProfileRequest is the editable part of the signed-in profile.
type UpdateProfileRequest struct {
	FullName   string  `json:"full_name" validate:"required,min=2,max=120"`
	University *string `json:"university" validate:"omitempty,max=160"`
}

// UpdateProfileStatusRequest suspends or reactivates an account.
type UpdateProfileStatusRequest struct {
	Status ProfileStatus `json:"status" validate:"required,oneof=active suspended pending"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
