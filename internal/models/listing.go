package models

import (
	"time"

	"github.com/lib/pq"
)

// ListingStatus is the moderation state of a listing.
type ListingStatus string

const (
	ListingStatusPending  ListingStatus = "pending"
	ListingStatusApproved ListingStatus = "approved"
	ListingStatusRejected ListingStatus = "rejected"
)

// Valid reports whether s is a known moderation status.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusPending, ListingStatusApproved, ListingStatusRejected:
		return true
	}
	return false
}

// CanTransition reports whether a listing may move from s to next.
// Only pending listings are reviewed.
func (s ListingStatus) CanTransition(next ListingStatus) bool {
	return s == ListingStatusPending && (next == ListingStatusApproved || next == ListingStatusRejected)
}

// Listing is a user-submitted educational material.
type Listing struct {
	ID              string         `db:"id" json:"id"`
	OwnerID         string         `db:"owner_id" json:"owner_id"`
	CategoryID      string         `db:"category_id" json:"category_id"`
	Title           string         `db:"title" json:"title"`
	Description     string         `db:"description" json:"description"`
	Price           float64        `db:"price" json:"price"`
	Status          ListingStatus  `db:"status" json:"status"`
	DownloadCount   int            `db:"download_count" json:"download_count"`
	FilePath        string         `db:"file_path" json:"-"`
	FileName        string         `db:"file_name" json:"file_name"`
	FileSize        int64          `db:"file_size" json:"file_size"`
	FileMIME        string         `db:"file_mime" json:"file_mime"`
	PreviewPaths    pq.StringArray `db:"preview_paths" json:"-"`
	University      *string        `db:"university" json:"university,omitempty"`
	CourseCode      *string        `db:"course_code" json:"course_code,omitempty"`
	Subject         *string        `db:"subject" json:"subject,omitempty"`
	Language        string         `db:"language" json:"language"`
	Tags            pq.StringArray `db:"tags" json:"tags"`
	RejectionReason *string        `db:"rejection_reason" json:"rejection_reason,omitempty"`
	ReviewedBy      *string        `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time     `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`

	OwnerName    string `db:"owner_name" json:"owner_name"`
	CategoryName string `db:"category_name" json:"category_name"`
	CategorySlug string `db:"category_slug" json:"category_slug"`

	PreviewImages []string `db:"-" json:"preview_images"`
}

// ListingFilter captures database-side listing criteria.
type ListingFilter struct {
	OwnerID   string
	Status    ListingStatus
	Category  string
	Search    string
	Sort      string
	Page      int
	PageSize  int
	AdminView bool
}

// CreateListingInput is the metadata part of a multipart upload.
type CreateListingInput struct {
	Title       string   `form:"title" validate:"required,min=3,max=200"`
	Description string   `form:"description" validate:"required,min=10,max=5000"`
	CategoryID  string   `form:"category_id" validate:"required"`
	Price       float64  `form:"price" validate:"gte=0,lte=100000"`
	University  string   `form:"university" validate:"omitempty,max=160"`
	CourseCode  string   `form:"course_code" validate:"omitempty,max=40"`
	Subject     string   `form:"subject" validate:"omitempty,max=120"`
	Language    string   `form:"language" validate:"omitempty,max=40"`
	Tags        []string `form:"tags" validate:"omitempty,max=20,dive,max=40"`
}

// UpdateListingRequest patches listing metadata. Nil fields are left untouched.
type UpdateListingRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=3,max=200"`
	Description *string   `json:"description" validate:"omitempty,min=10,max=5000"`
	CategoryID  *string   `json:"category_id"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0,lte=100000"`
	University  *string   `json:"university" validate:"omitempty,max=160"`
	CourseCode  *string   `json:"course_code" validate:"omitempty,max=40"`
	Subject     *string   `json:"subject" validate:"omitempty,max=120"`
	Language    *string   `json:"language" validate:"omitempty,max=40"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,max=40"`
}

// ReviewListingRequest carries the optional moderation note.
type ReviewListingRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}
