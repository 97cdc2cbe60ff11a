package sync

// Status values reported per event and for a delivery as a whole.
const (
	StatusSuccess = "success"
	StatusIgnored = "ignored"
	StatusError   = "error"
)

// Outcome records what happened to a single webhook event.
type Outcome struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	UserID  string      `json:"user_id,omitempty"`
	PageID  string      `json:"page_id,omitempty"`
	Before  *NameRecord `json:"before,omitempty"`
	After   *NameRecord `json:"after,omitempty"`
}

func successOutcome(userID string, before, after NameRecord) Outcome {
	return Outcome{Status: StatusSuccess, UserID: userID, Before: &before, After: &after}
}

func ignoredOutcome(userID, message string) Outcome {
	return Outcome{Status: StatusIgnored, UserID: userID, Message: message}
}

func errorOutcome(userID, message string) Outcome {
	return Outcome{Status: StatusError, UserID: userID, Message: message}
}

// EventReport aggregates the outcomes of one webhook delivery, which may
// carry a batch of events.
type EventReport struct {
	Status       string    `json:"status"`
	Message      string    `json:"message,omitempty"`
	SuccessCount int       `json:"success_count"`
	IgnoredCount int       `json:"ignored_count"`
	ErrorCount   int       `json:"error_count"`
	Results      []Outcome `json:"results,omitempty"`
}

// reportFor rolls individual outcomes up into a delivery-level status.
// Any success makes the delivery a success; a delivery with only ignored
// events is ignored; errors surface only when nothing succeeded.
func reportFor(results []Outcome) EventReport {
	report := EventReport{Results: results}
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			report.SuccessCount++
		case StatusIgnored:
			report.IgnoredCount++
		default:
			report.ErrorCount++
		}
	}
	switch {
	case report.SuccessCount > 0:
		report.Status = StatusSuccess
	case report.ErrorCount == 0:
		report.Status = StatusIgnored
	default:
		report.Status = StatusError
	}
	return report
}
