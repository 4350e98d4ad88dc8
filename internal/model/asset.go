package model

import "time"

// Asset represents an individually tracked piece of equipment.
type Asset struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	SerialNumber string     `json:"serial_number"`
	CategoryID   int64      `json:"category_id"`
	Status       string     `json:"status"`
	ImagePath    string     `json:"image_path,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`

	// Joined fields (not always populated).
	CategoryName string `json:"category_name,omitempty"`
}

// Asset statuses.
const (
	AssetStatusAvailable   = "available"
	AssetStatusAssigned    = "assigned"
	AssetStatusMaintenance = "maintenance"
	AssetStatusBroken      = "broken"
)

// AssetStatuses lists every valid status in display order.
var AssetStatuses = []string{
	AssetStatusAvailable,
	AssetStatusAssigned,
	AssetStatusMaintenance,
	AssetStatusBroken,
}

// ValidAssetStatus reports whether status is one of the enumerated asset statuses.
func ValidAssetStatus(status string) bool {
	for _, s := range AssetStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Holding is an asset currently checked out to a user, with the open
// assignment that put it there.
type Holding struct {
	Asset
	AssignmentID   int64     `json:"assignment_id"`
	AssignedAt     time.Time `json:"assigned_at"`
	AssignedByName string    `json:"assigned_by_name,omitempty"`
	Notes          string    `json:"notes,omitempty"`
}

// AssetFilter narrows asset listings. Zero values mean "any".
type AssetFilter struct {
	Status     string
	CategoryID int64
	Search     string
}
