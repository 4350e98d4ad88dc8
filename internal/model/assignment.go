package model

import "time"

// Assignment is a ledger entry recording one checkout of an asset to a holder.
// Only ReturnedAt and ReturnNotes are ever written after creation, and only once.
type Assignment struct {
	ID          int64      `json:"id"`
	AssetID     int64      `json:"asset_id"`
	UserID      int64      `json:"user_id"`
	AssignedBy  int64      `json:"assigned_by"`
	AssignedAt  time.Time  `json:"assigned_at"`
	ReturnedAt  *time.Time `json:"returned_at"`
	Notes       string     `json:"notes,omitempty"`
	ReturnNotes string     `json:"return_notes,omitempty"`

	// Joined fields (not always populated).
	AssetName      string `json:"asset_name,omitempty"`
	SerialNumber   string `json:"serial_number,omitempty"`
	UserName       string `json:"user_name,omitempty"`
	AssignedByName string `json:"assigned_by_name,omitempty"`
}

// Open reports whether the assignment has not been returned yet.
func (a *Assignment) Open() bool {
	return a.ReturnedAt == nil
}

// AssignmentFilter narrows assignment listings. Zero values mean "any".
type AssignmentFilter struct {
	AssetID  int64
	UserID   int64
	OpenOnly bool
	Limit    int
}
