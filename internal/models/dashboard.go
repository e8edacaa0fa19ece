package models

import "time"

// CategoryShare is one slice of the admin category breakdown.
type CategoryShare struct {
	CategoryID string  `db:"category_id" json:"category_id"`
	Name       string  `db:"name" json:"name"`
	Count      int     `db:"count" json:"count"`
	Percentage float64 `db:"-" json:"percentage"`
}

// AdminDashboard summarises marketplace activity for administrators.
type AdminDashboard struct {
	TotalUsers      int             `json:"total_users"`
	ActiveListings  int             `json:"active_listings"`
	PendingListings int             `json:"pending_listings"`
	TotalDownloads  int             `json:"total_downloads"`
	OpenReports     int             `json:"open_reports"`
	Categories      []CategoryShare `json:"categories"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// UserDashboard summarises one profile's marketplace activity.
type UserDashboard struct {
	Uploads           int `db:"uploads" json:"uploads"`
	ApprovedUploads   int `db:"approved_uploads" json:"approved_uploads"`
	PendingUploads    int `db:"pending_uploads" json:"pending_uploads"`
	DownloadsReceived int `db:"downloads_received" json:"downloads_received"`
	DownloadsMade     int `db:"downloads_made" json:"downloads_made"`
}
