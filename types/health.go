package types

import "strconv"

// Health states.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus reports whether a component can do its work.
type HealthStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func (h HealthStatus) IsHealthy() bool   { return h.Status == StatusHealthy }
func (h HealthStatus) IsDegraded() bool  { return h.Status == StatusDegraded }
func (h HealthStatus) IsUnhealthy() bool { return h.Status == StatusUnhealthy }

// NewHealthyStatus returns a healthy status.
func NewHealthyStatus(message string) HealthStatus {
	return HealthStatus{Status: StatusHealthy, Message: message}
}

// NewDegradedStatus returns a degraded status.
func NewDegradedStatus(message string, details map[string]any) HealthStatus {
	return HealthStatus{Status: StatusDegraded, Message: message, Details: details}
}

// NewUnhealthyStatus returns an unhealthy status.
func NewUnhealthyStatus(message string, details map[string]any) HealthStatus {
	return HealthStatus{Status: StatusUnhealthy, Message: message, Details: details}
}

// Combine folds several statuses into the worst one. Messages of non-healthy
// inputs are kept in Details under their index.
func Combine(statuses ...HealthStatus) HealthStatus {
	worst := NewHealthyStatus("all components healthy")
	var details map[string]any
	for i, s := range statuses {
		if s.IsHealthy() {
			continue
		}
		if details == nil {
			details = make(map[string]any)
		}
		details[strconv.Itoa(i)] = s.Message
		if s.IsUnhealthy() || worst.IsHealthy() {
			worst = HealthStatus{Status: s.Status, Message: s.Message}
		}
	}
	worst.Details = details
	return worst
}
