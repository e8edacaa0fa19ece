package models

import "time"

// ReportType classifies a user report.
type ReportType string

const (
	ReportTypeContentViolation ReportType = "Content Violation"
	ReportTypeInappropriate    ReportType = "Inappropriate Content"
	ReportTypeSpam             ReportType = "Spam/Fake Content"
	ReportTypeUserBehavior     ReportType = "User Behavior"
	ReportTypeTechnical        ReportType = "Technical Issue"
)

// ReportStatus tracks moderation progress of a report.
type ReportStatus string

const (
	ReportStatusPending       ReportStatus = "pending"
	ReportStatusInvestigating ReportStatus = "investigating"
	ReportStatusResolved      ReportStatus = "resolved"
	ReportStatusDismissed     ReportStatus = "dismissed"
)

// CanTransition reports whether a report may move from s to next.
// Resolved and dismissed reports are closed.
func (s ReportStatus) CanTransition(next ReportStatus) bool {
	switch s {
	case ReportStatusPending:
		return next == ReportStatusInvestigating || next == ReportStatusResolved || next == ReportStatusDismissed
	case ReportStatusInvestigating:
		return next == ReportStatusResolved || next == ReportStatusDismissed
	}
	return false
}

// ReportPriority orders the admin queue.
type ReportPriority string

const (
	ReportPriorityHigh   ReportPriority = "high"
	ReportPriorityMedium ReportPriority = "medium"
	ReportPriorityLow    ReportPriority = "low"
)

// PriorityFor derives the queue priority of a report type.
func PriorityFor(t ReportType) ReportPriority {
	switch t {
	case ReportTypeContentViolation, ReportTypeUserBehavior:
		return ReportPriorityHigh
	case ReportTypeInappropriate, ReportTypeTechnical:
		return ReportPriorityMedium
	default:
		return ReportPriorityLow
	}
}

// Report is a user complaint about a listing or another user.
type Report struct {
	ID             string         `db:"id" json:"id"`
	Type           ReportType     `db:"type" json:"type"`
	ReporterID     string         `db:"reporter_id" json:"reporter_id"`
	ListingID      *string        `db:"listing_id" json:"listing_id,omitempty"`
	ReportedUserID *string        `db:"reported_user_id" json:"reported_user_id,omitempty"`
	Reason         string         `db:"reason" json:"reason"`
	Description    string         `db:"description" json:"description"`
	Priority       ReportPriority `db:"priority" json:"priority"`
	Status         ReportStatus   `db:"status" json:"status"`
	Resolution     *string        `db:"resolution" json:"resolution,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`

	ReportedItem     string `db:"reported_item" json:"reported_item"`
	ReportedBy       string `db:"reported_by" json:"reported_by"`
	ReportedUserName string `db:"reported_user_name" json:"reported_user"`
}

// ReportFilter captures admin reports table criteria.
type ReportFilter struct {
	Search   string
	Status   ReportStatus
	Type     ReportType
	Page     int
	PageSize int
}

// CreateReportRequest files a new report.
type CreateReportRequest struct {
	Type           ReportType `json:"type" validate:"required,oneof='Content Violation' 'Inappropriate Content' 'Spam/Fake Content' 'User Behavior' 'Technical Issue'"`
	ListingID      *string    `json:"listing_id" validate:"omitempty,uuid"`
	ReportedUserID *string    `json:"reported_user_id" validate:"omitempty,uuid"`
	Reason         string     `json:"reason" validate:"required,min=3,max=200"`
	Description    string     `json:"description" validate:"max=2000"`
}

// UpdateReportStatusRequest moves a report through the admin workflow.
type UpdateReportStatusRequest struct {
	Status     ReportStatus `json:"status" validate:"required,oneof=pending investigating resolved dismissed"`
	Resolution string       `json:"resolution" validate:"max=2000"`
}
