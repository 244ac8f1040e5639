package server

// StartAuditRequest is the payload for starting an audit job.
type StartAuditRequest struct {
	URL string `json:"url"`

	// TimeoutSeconds is clamped to [5, 120]; 0 means the default budget.
	TimeoutSeconds int `json:"timeout,omitempty"`

	// GracePeriodSeconds is the post-idle wait; 0 means the default.
	GracePeriodSeconds int `json:"grace,omitempty"`
}

// CompareResponse carries the line diff between two stored scans.
type CompareResponse struct {
	BeforeID string `json:"before_id"`
	AfterID  string `json:"after_id"`
	Diff     string `json:"diff"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
