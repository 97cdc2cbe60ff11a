package sync

import (
	"context"
	"fmt"
	"log"

	"github.com/tidwall/gjson"
)

// NameResolver is the record access surface the webhook handler needs.
// Satisfied by RecordResolver.
type NameResolver interface {
	FetchNames(target ClassifiedTarget, ctx context.Context) (NameRecord, RecordKind, error)
	UpdateNames(id string, kind RecordKind, names NameRecord, ctx context.Context) error
}

// HubSpotWebhookHandler normalizes user names in response to HubSpot
// webhook deliveries.
type HubSpotWebhookHandler struct {
	*SyncContext
	Resolver NameResolver
}

// HandleDelivery processes one webhook delivery. HubSpot batches events,
// so the payload may be a single event object or an array of them; each
// event is isolated so one bad event cannot sink the rest of the batch.
func (h HubSpotWebhookHandler) HandleDelivery(payload []byte, ctx context.Context) EventReport {
	if !gjson.ValidBytes(payload) {
		return EventReport{Status: StatusError, Message: "invalid webhook payload format", ErrorCount: 1}
	}
	parsed := gjson.ParseBytes(payload)
	switch {
	case parsed.IsArray():
		var results []Outcome
		for _, element := range parsed.Array() {
			if !element.IsObject() {
				results = append(results, errorOutcome("", "invalid webhook payload format"))
				continue
			}
			results = append(results, h.handleEvent(Event{Source{data: element}}, ctx))
		}
		return reportFor(results)
	case parsed.IsObject():
		return reportFor([]Outcome{h.handleEvent(Event{Source{data: parsed}}, ctx)})
	default:
		return EventReport{Status: StatusError, Message: "invalid webhook payload format", ErrorCount: 1}
	}
}

func (h HubSpotWebhookHandler) handleEvent(event Event, ctx context.Context) Outcome {
	classification := ClassifyEvent(event)
	if classification.Ignored {
		log.Printf("Ignoring webhook event: %s", classification.Reason)
		return ignoredOutcome("", classification.Reason)
	}
	target := *classification.Target
	log.Printf("Classified webhook event as %s %s via %s rule", target.Kind, target.EntityID, classification.Rule)

	fetched, kind, err := h.Resolver.FetchNames(target, ctx)
	if err != nil {
		return errorOutcome(target.EntityID, fmt.Sprintf("failed to fetch record %s: %v", target.EntityID, err))
	}

	current := MergeNames(fetched, target.Hints)
	if current.IsEmpty() {
		return ignoredOutcome(target.EntityID, "record has no first or last name to normalize")
	}
	normalized := current.Normalized()
	if normalized == current {
		return ignoredOutcome(target.EntityID, "names already normalized")
	}

	if err := h.Resolver.UpdateNames(target.EntityID, kind, normalized, ctx); err != nil {
		return errorOutcome(target.EntityID, fmt.Sprintf("failed to update record %s: %v", target.EntityID, err))
	}
	log.Printf("Normalized names for %s %s: %q %q -> %q %q",
		kind, target.EntityID, current.FirstName, current.LastName, normalized.FirstName, normalized.LastName)
	return successOutcome(target.EntityID, current, normalized)
}
