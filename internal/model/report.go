package model

// DashboardStats aggregates the current state of the asset registry and ledger.
type DashboardStats struct {
	TotalAssets       int `json:"total_assets"`
	AvailableAssets   int `json:"available_assets"`
	AssignedAssets    int `json:"assigned_assets"`
	MaintenanceAssets int `json:"maintenance_assets"`
	BrokenAssets      int `json:"broken_assets"`
	TotalEmployees    int `json:"total_employees"`
	TotalAdmins       int `json:"total_admins"`
	TotalCategories   int `json:"total_categories"`
	ActiveAssignments int `json:"active_assignments"`
}

// CategoryCount is the number of active assets in one category.
type CategoryCount struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Dashboard is everything the admin overview shows in one response.
type Dashboard struct {
	Stats             DashboardStats  `json:"stats"`
	RecentAssignments []Assignment    `json:"recent_assignments"`
	AssetsByCategory  []CategoryCount `json:"assets_by_category"`
	AssetsByStatus    map[string]int  `json:"assets_by_status"`
}
