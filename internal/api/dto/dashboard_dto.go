package dto

// DashboardStatsResponse is the aggregate body for GET /dashboard.
type DashboardStatsResponse struct {
	Stats         StatusCountsResponse     `json:"stats"`
	PriorityStats []PriorityCountResponse  `json:"priority_stats"`
	CategoryStats []CategoryCountResponse  `json:"category_stats,omitempty"`
	RecentTickets []TicketResponse         `json:"recent_tickets"`
}

// StatusCountsResponse mirrors the per-status totals.
type StatusCountsResponse struct {
	Total           int `json:"total"`
	Open            int `json:"open"`
	InProgress      int `json:"in_progress"`
	Resolved        int `json:"resolved"`
	Closed          int `json:"closed"`
	TotalCategories int `json:"total_categories"`
}

// PriorityCountResponse is one histogram bucket.
type PriorityCountResponse struct {
	Priority string `json:"priority"`
	Count    int    `json:"count"`
}

// CategoryCountResponse is one row of the superadmin breakdown.
type CategoryCountResponse struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
}
