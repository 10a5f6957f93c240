package domain

import "time"

// DiagnosticStatus indicates whether a single environment check passed.
type DiagnosticStatus string

const (
	DiagnosticStatusPass DiagnosticStatus = "pass"
	DiagnosticStatusWarn DiagnosticStatus = "warn"
	DiagnosticStatusFail DiagnosticStatus = "fail"
)

// DiagnosticItem is one check result with an optional hint.
type DiagnosticItem struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Status  DiagnosticStatus `json:"status"`
	Message string           `json:"message"`
	Hint    string           `json:"hint,omitempty"`
}

// DiagnosticReport aggregates environment checks for `podscribe doctor`.
type DiagnosticReport struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	HasFailures bool             `json:"hasFailures"`
	Items       []DiagnosticItem `json:"items"`
}

// Failures returns only the failed items.
func (r DiagnosticReport) Failures() []DiagnosticItem {
	var out []DiagnosticItem
	for _, item := range r.Items {
		if item.Status == DiagnosticStatusFail {
			out = append(out, item)
		}
	}
	return out
}
