package domain

import (
	"errors"
	"time"
)

// MemeStatus represents the moderation status of a meme record.
// Values include MemeStatusPending, MemeStatusApproved, and MemeStatusRejected.
type MemeStatus string

const (
	MemeStatusPending  MemeStatus = "pending"
	MemeStatusApproved MemeStatus = "approved"
	MemeStatusRejected MemeStatus = "rejected"
)

// IsValid reports whether s is one of the three moderation statuses.
// Parameters: none.
// Returns:
//   - bool: true when s is pending, approved, or rejected.
func (s MemeStatus) IsValid() bool {
	switch s {
	case MemeStatusPending, MemeStatusApproved, MemeStatusRejected:
		return true
	}
	return false
}

// ErrInvalidTransition is returned when a moderation action is not defined
// for the record's current status. Rejected is terminal.
var ErrInvalidTransition = errors.New("invalid status transition")

// CanTransition reports whether a moderation transition is defined.
// Parameters:
//   - from: current status.
//   - to: requested status.
// Returns:
//   - bool: true when the transition is defined.
func CanTransition(from, to MemeStatus) bool {
	switch from {
	case MemeStatusPending:
		return to == MemeStatusApproved || to == MemeStatusRejected
	case MemeStatusApproved:
		return to == MemeStatusPending
	}
	return false
}

// Meme represents a staged or published meme record.
// Descriptive fields, fingerprints, score, and nsfw_score are set once at
// creation; only status, published_at, and the title change afterwards.
type Meme struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	Title       string     `gorm:"type:text;not null" json:"title"`
	ImageURL    string     `gorm:"type:text;not null" json:"image_url"`
	SourceURL   string     `gorm:"type:text" json:"source_url"`
	Author      string     `gorm:"type:text" json:"author,omitempty"`
	Score       int        `json:"score"`
	NSFWScore   float64    `gorm:"column:nsfw_score" json:"nsfw_score"`
	MD5         string     `gorm:"column:md5;index:idx_memes_md5" json:"md5"`
	PHash       string     `gorm:"column:phash;type:text" json:"phash"`
	DuplicateOf *string    `gorm:"column:duplicate_of;type:text;index" json:"duplicate_of,omitempty"`
	ArchiveKey  string     `gorm:"type:text" json:"archive_key,omitempty"`
	Status      MemeStatus `gorm:"type:text;index:idx_memes_status;default:pending" json:"status"`
	PublishedAt *time.Time `gorm:"index:idx_memes_published" json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Meme.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Meme) TableName() string {
	return "memes"
}

// IsPublished reports whether the record belongs in the public feed at now.
// Parameters:
//   - now: reference time.
// Returns:
//   - bool: true when status is approved and published_at is set and not in the future.
func (m *Meme) IsPublished(now time.Time) bool {
	return m.Status == MemeStatusApproved && m.PublishedAt != nil && !m.PublishedAt.After(now)
}
