package domain

import "time"

// DefaultColorTag is applied when a category is created without one.
const DefaultColorTag = "#3B82F6"

// Category is a routing bucket for incoming tickets. Categories are never
// deleted, only soft-disabled via IsActive.
type Category struct {
	ID          string
	Name        string
	Description string
	ColorTag    string
	IsActive    bool
	Priority    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
