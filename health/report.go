package health

import "time"

// Report is the outcome of one aggregated run.
type Report struct {
	Status    Status        `json:"status" yaml:"status"`
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Checks    []CheckReport `json:"checks,omitempty" yaml:"checks,omitempty"`
}

// CheckReport is the printable form of one check result.
type CheckReport struct {
	Name     string         `json:"name" yaml:"name"`
	Status   Status         `json:"status" yaml:"status"`
	Message  string         `json:"message,omitempty" yaml:"message,omitempty"`
	Duration string         `json:"duration,omitempty" yaml:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
}

func newCheckReport(name string, r Result) CheckReport {
	c := CheckReport{
		Name:    name,
		Status:  r.Status,
		Message: r.Message,
		Details: r.Details,
	}
	if r.Duration > 0 {
		c.Duration = r.Duration.String()
	}
	if r.Error != nil {
		c.Error = r.Error.Error()
	}
	return c
}

// Healthy reports whether the run found nothing unhealthy. Degraded checks
// still count as healthy.
func (r Report) Healthy() bool {
	return r.Status != StatusUnhealthy
}
