package domain

import "time"

// Role represents the capability of a caller on the read/write surface.
type Role string

const (
	RolePublic Role = "public"
	RoleAdmin  Role = "admin"
)

// Actor carries the capability of the caller performing a request.
type Actor struct {
	Role Role
}

// CanView reports whether the actor may read the given record.
// Admins see everything; the public sees only approved records whose
// published_at has passed.
// Parameters:
//   - meme: record being requested.
//   - now: reference time for the publication check.
// Returns:
//   - bool: true when access is allowed.
func (a Actor) CanView(meme *Meme, now time.Time) bool {
	if a.Role == RoleAdmin {
		return true
	}
	return meme.IsPublished(now)
}

// CanModerate reports whether the actor may change moderation state.
// Parameters: none.
// Returns:
//   - bool: true for admin actors.
func (a Actor) CanModerate() bool {
	return a.Role == RoleAdmin
}
