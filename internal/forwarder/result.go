package forwarder

import (
	"fmt"
	"net/http"
	"time"
)

// Attempt is the outcome of one delivery leg. Status and StatusText are only
// present when a response was received; Error is only present on transport
// failure. A non-2xx response is a failure but not an error.
type Attempt struct {
	Target     string `json:"target"`
	Success    bool   `json:"success"`
	Status     int    `json:"status,omitempty"`
	StatusText string `json:"statusText,omitempty"`
	Error      string `json:"error,omitempty"`
	Duration   string `json:"duration"`

	// Elapsed is the raw wall-clock duration backing the Duration string,
	// kept for the metrics pipeline.
	Elapsed time.Duration `json:"-"`
}

// Aggregate is the single summary returned to the original caller once every
// delivery has completed. Results preserve configured destination order.
type Aggregate struct {
	ID           string    `json:"id"`
	Message      string    `json:"message"`
	TotalTargets int       `json:"totalTargets"`
	Successful   int       `json:"successful"`
	Failed       int       `json:"failed"`
	Results      []Attempt `json:"results"`
}

// HTTPStatus maps the aggregate outcome to the outer response status:
// all succeeded 200, all failed 502, mixed 207. The zero-destination case
// never reaches dispatch and therefore never reaches this mapping.
func (a *Aggregate) HTTPStatus() int {
	switch {
	case a.Failed == 0:
		return http.StatusOK
	case a.Successful == 0:
		return http.StatusBadGateway
	default:
		return http.StatusMultiStatus
	}
}

func newAggregate(id string, results []Attempt) *Aggregate {
	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}

	failed := len(results) - successful

	return &Aggregate{
		ID:           id,
		Message:      fmt.Sprintf("Forwarded to %d target(s): %d succeeded, %d failed", len(results), successful, failed),
		TotalTargets: len(results),
		Successful:   successful,
		Failed:       failed,
		Results:      results,
	}
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Round(time.Millisecond).Milliseconds())
}
