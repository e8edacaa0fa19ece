package models

import "time"

// Download is an append-only receipt of one download event.
type Download struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	ListingID    string    `db:"listing_id" json:"listing_id"`
	DownloadedAt time.Time `db:"downloaded_at" json:"downloaded_at"`

	ListingTitle string `db:"listing_title" json:"listing_title,omitempty"`
	CategoryName string `db:"category_name" json:"category_name,omitempty"`
}

// DownloadLink is a short-lived URL granting one listing file.
type DownloadLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
