package models

import "time"

const (
	AuditActionSignUp          = "SIGN_UP"
	AuditActionSignIn          = "SIGN_IN"
	AuditActionSignOut         = "SIGN_OUT"
	AuditActionPasswordChange  = "PASSWORD_CHANGE"
	AuditActionProfileStatus   = "PROFILE_STATUS"
	AuditActionListingCreate   = "LISTING_CREATE"
	AuditActionListingUpdate   = "LISTING_UPDATE"
	AuditActionListingDelete   = "LISTING_DELETE"
	AuditActionListingApprove  = "LISTING_APPROVE"
	AuditActionListingReject   = "LISTING_REJECT"
	AuditActionCategoryWrite   = "CATEGORY_WRITE"
	AuditActionCategoryDelete  = "CATEGORY_DELETE"
	AuditActionReportStatus    = "REPORT_STATUS"
	AuditActionListingDownload = "LISTING_DOWNLOAD"
	AuditActionListingExport   = "LISTING_EXPORT"
)

// AuditLog is one append-only entry of the audit trail.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
