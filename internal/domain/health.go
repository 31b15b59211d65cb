package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual service.
type ServiceHealth struct {
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	LatencyMs     int64   `json:"latencyMs"`
	UptimePercent float64 `json:"uptimePercent"`
	LastChecked   string  `json:"lastChecked"`
}

// MetricsSummary is returned by GET /v1/metrics/summary.
type MetricsSummary struct {
	TotalRequests         int64   `json:"total_requests"`
	ErrorRate             float64 `json:"error_rate"`
	ExternalErrors        int64   `json:"external_errors"`
	CacheHitRate          float64 `json:"cache_hit_rate"`
	InstallmentsGenerated int64   `json:"installments_generated"`
	ApprovalTransitions   int64   `json:"approval_transitions"`
	NotificationsSent     int64   `json:"notifications_sent"`
	InvitationsSent       int64   `json:"invitations_sent"`
	ScheduleWarnings      int64   `json:"schedule_warnings"`
	Period                string  `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps paginated list results.
type ListResponse[T any] struct {
	Data     []T  `json:"data"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
