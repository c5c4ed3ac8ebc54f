// Package models defines server-side data models persisted in the database
// and rendered in API responses.
package models

import "time"

// User is an account record. PasswordHash and the verification/reset token
// fields never appear in responses.
type User struct {
	ID                      string     `json:"id"`
	Name                    string     `json:"name"`
	Email                   string     `json:"email"`
	PasswordHash            string     `json:"-"`
	IsVerified              bool       `json:"isVerified"`
	VerificationToken       string     `json:"-"`
	VerificationTokenExpiry *time.Time `json:"-"`
	ResetToken              string     `json:"-"`
	ResetTokenExpiry        *time.Time `json:"-"`
	CreatedAt               time.Time  `json:"createdAt"`
}

// ItemStatus is the progress state of an item.
type ItemStatus string

const (
	StatusNotStarted ItemStatus = "NOT_STARTED"
	StatusInProgress ItemStatus = "IN_PROGRESS"
	StatusCompleted  ItemStatus = "COMPLETED"
)

// Valid reports whether s is one of the known status values.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Item is one key/value entry inside a todo. Value is stored encrypted
// (envelope form) and decrypted before it reaches the owner.
type Item struct {
	ID         string     `json:"id"`
	Key        string     `json:"key,omitempty"`
	Value      string     `json:"value,omitempty"`
	Name       string     `json:"name,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Points     int        `json:"points,omitempty"`
	Links      []string   `json:"links"`
	Images     []string   `json:"images"`
	Status     ItemStatus `json:"status"`
	TargetDate *time.Time `json:"targetDate,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Todo is a named collection of items owned by exactly one user.
type Todo struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Title      string     `json:"title"`
	Items      []Item     `json:"items"`
	TargetDate *time.Time `json:"targetDate,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// ItemPatch is one item in an update payload. Pointer fields distinguish
// "absent" from "set to zero": only fields present in the payload are
// applied to the stored item. An empty ID marks a newly created item.
type ItemPatch struct {
	ID         string      `json:"id"`
	Key        *string     `json:"key"`
	Value      *string     `json:"value"`
	Name       *string     `json:"name"`
	Notes      *string     `json:"notes"`
	Points     *int        `json:"points"`
	Links      []string    `json:"links"`
	Images     []string    `json:"images"`
	Status     *ItemStatus `json:"status"`
	TargetDate *time.Time  `json:"targetDate"`
	CreatedAt  *time.Time  `json:"createdAt"`
}

// TodoPatch is a partial update of a todo. A nil Items pointer leaves the
// item set untouched; a non-nil one replaces it (absent ids are removed,
// listed ids are patched field-wise).
type TodoPatch struct {
	Title      *string      `json:"title"`
	TargetDate *time.Time   `json:"targetDate"`
	Items      *[]ItemPatch `json:"items"`
}

// RefreshToken is an opaque, persisted token exchangeable for a new
// access/refresh token pair.
type RefreshToken struct {
	UserID  string
	Token   string
	Expires time.Time
}
