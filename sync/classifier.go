package sync

import (
	"fmt"
	"strings"
)

// RecordKind identifies which CRM object model an entity belongs to.
// The classifier's guess is advisory: KindUnknown (and a wrong guess) is
// repaired by the resolver's endpoint fallback.
type RecordKind int

const (
	KindUnknown RecordKind = iota
	KindUser
	KindContact
)

func (k RecordKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindContact:
		return "contact"
	default:
		return "unknown"
	}
}

// ClassifiedTarget is the canonical result of classifying a webhook event:
// the entity to act on, which object model it likely belongs to, and any
// name values the payload itself carried.
type ClassifiedTarget struct {
	EntityID string
	Kind     RecordKind
	Hints    map[string]string
}

// Classification is the outcome of running the rule table over one event.
// Target is nil when the event should be ignored; Ignored distinguishes a
// deliberate skip (e.g. a non-name property change) from a payload no rule
// recognised. Neither case is an error.
type Classification struct {
	Target  *ClassifiedTarget
	Ignored bool
	Rule    string
	Reason  string
}

type ruleOutcome int

const (
	ruleNoMatch ruleOutcome = iota
	ruleMatched
	ruleIgnore
)

type ruleResult struct {
	outcome ruleOutcome
	target  *ClassifiedTarget
	reason  string
}

func matched(t *ClassifiedTarget) ruleResult {
	return ruleResult{outcome: ruleMatched, target: t}
}

func ignore(reason string) ruleResult {
	return ruleResult{outcome: ruleIgnore, reason: reason}
}

func noMatch() ruleResult {
	return ruleResult{}
}

type classifierRule struct {
	Name  string
	Apply func(Event) ruleResult
}

// classifierRules is evaluated in order, first match wins. The order
// encodes priority across the overlapping payload formats HubSpot has
// emitted across its webhook format revisions; do not reorder without
// fixtures covering every shape.
var classifierRules = []classifierRule{
	{Name: "property-change", Apply: classifyPropertyChange},
	{Name: "contact-webhook", Apply: classifyContactWebhook},
	{Name: "expanded-object", Apply: classifyExpandedObject},
	{Name: "typed-object", Apply: classifyTypedObject},
	{Name: "bare-object-id", Apply: classifyBareObjectID},
	{Name: "bare-user-id", Apply: classifyBareUserID},
	{Name: "flat-record", Apply: classifyFlatRecord},
	{Name: "nested-object", Apply: classifyNestedObject},
}

// ClassifyEvent resolves a webhook event of unknown shape into a
// ClassifiedTarget, or reports that the event should be ignored. An
// unrecognised shape is an expected, frequent case, never an error.
func ClassifyEvent(event Event) Classification {
	for _, rule := range classifierRules {
		result := rule.Apply(event)
		switch result.outcome {
		case ruleMatched:
			return Classification{Target: result.target, Rule: rule.Name}
		case ruleIgnore:
			return Classification{Ignored: true, Rule: rule.Name, Reason: result.reason}
		}
	}
	return Classification{Ignored: true, Reason: "no user id found in webhook event"}
}

// nameProperties are the property-change names that trigger normalization.
// Any other changed property is ignorable.
var nameProperties = map[string]bool{
	"firstname":  true,
	"lastname":   true,
	"first name": true,
	"last name":  true,
}

// resolveKind guesses the record kind from explicit type markers.
// objectTypeId "0-1" is HubSpot's contact object type.
func resolveKind(s Source) RecordKind {
	if typeID, ok := s.StringForPath("objectTypeId"); ok && typeID == "0-1" {
		return KindContact
	}
	if objectType, ok := s.StringForPath("objectType"); ok &&
		strings.Contains(strings.ToLower(objectType), "contact") {
		return KindContact
	}
	return KindUnknown
}

// classifyPropertyChange handles explicit single-property change events.
// Changes to anything but a name field are ignorable.
func classifyPropertyChange(event Event) ruleResult {
	subType, _ := event.StringForPath("subscriptionType")
	if subType == "" {
		subType, _ = event.StringForPath("eventType")
	}
	switch strings.ToLower(subType) {
	case "object.propertychange", "contact.propertychange":
	default:
		return noMatch()
	}
	id, _ := event.StringForPath("objectId")
	if id == "" {
		id, _ = event.StringForPath("contactId")
	}
	if id == "" {
		return noMatch()
	}
	name, _ := event.StringForPath("propertyName")
	value, _ := event.StringForPath("propertyValue")
	if !nameProperties[strings.ToLower(name)] {
		return ignore(fmt.Sprintf("property %q is not a name field", name))
	}
	hints := map[string]string{
		"propertyName":         name,
		"propertyValue":        value,
		strings.ToLower(name): value,
	}
	return matched(&ClassifiedTarget{EntityID: id, Kind: resolveKind(event.Source), Hints: hints})
}

// classifyContactWebhook handles contact.* webhooks and anything carrying a
// contactId. Contact properties use lower-case keys and may appear nested
// under "properties" or flat at the top level.
func classifyContactWebhook(event Event) ruleResult {
	eventType, _ := event.StringForPath("eventType")
	if !strings.HasPrefix(strings.ToLower(eventType), "contact.") && !event.HasKey("contactId") {
		return noMatch()
	}
	id, _ := event.StringForPath("contactId")
	if id == "" {
		id, _ = event.StringForPath("objectId")
	}
	if id == "" {
		return noMatch()
	}
	hints := event.PropertiesMap("properties")
	if len(hints) == 0 {
		hints = map[string]string{}
		for _, key := range []string{"firstname", "lastname", "email"} {
			if v, ok := event.StringForPath(key); ok {
				hints[key] = v
			}
		}
	}
	return matched(&ClassifiedTarget{EntityID: id, Kind: KindContact, Hints: hints})
}

// expandedEventTypes is the allow-list for the expanded object format when
// neither the object type nor the event type prefix identifies the event.
var expandedEventTypes = map[string]bool{
	"user.created":           true,
	"user.updated":           true,
	"user.propertychange":    true,
	"user.deleted":           true,
	"contact.created":        true,
	"contact.updated":        true,
	"contact.propertychange": true,
}

// classifyExpandedObject handles the expanded object support format marked
// by occurredAt/subscriptionId. When a property-change pair and a
// properties map both name the same field, the map wins.
func classifyExpandedObject(event Event) ruleResult {
	if !event.HasKey("occurredAt") && !event.HasKey("subscriptionId") {
		return noMatch()
	}
	id, _ := event.StringForPath("objectId")
	if id == "" {
		return noMatch()
	}
	objectType, _ := event.StringForPath("objectType")
	objectType = strings.ToUpper(objectType)
	eventType, _ := event.StringForPath("eventType")
	eventType = strings.ToLower(eventType)

	accepted := strings.Contains(objectType, "USER") ||
		strings.Contains(objectType, "CONTACT") ||
		strings.HasPrefix(eventType, "object.") ||
		strings.HasPrefix(eventType, "contact.") ||
		expandedEventTypes[eventType]
	if !accepted {
		return noMatch()
	}

	hints := map[string]string{}
	if strings.Contains(eventType, "propertychange") {
		if name, _ := event.StringForPath("propertyName"); name != "" {
			value, _ := event.StringForPath("propertyValue")
			hints[name] = value
		}
	}
	for k, v := range event.PropertiesMap("properties") {
		hints[k] = v
	}
	return matched(&ClassifiedTarget{EntityID: id, Kind: resolveKind(event.Source), Hints: hints})
}

func classifyBareObjectID(event Event) ruleResult {
	id, _ := event.StringForPath("objectId")
	if id == "" {
		return noMatch()
	}
	return matched(&ClassifiedTarget{
		EntityID: id,
		Kind:     resolveKind(event.Source),
		Hints:    event.PropertiesMap("properties"),
	})
}

func classifyBareUserID(event Event) ruleResult {
	id, _ := event.StringForPath("userId")
	if id == "" {
		return noMatch()
	}
	return matched(&ClassifiedTarget{
		EntityID: id,
		Kind:     KindUser,
		Hints:    event.PropertiesMap("properties"),
	})
}

// classifyFlatRecord handles payloads that are a full record snapshot
// rather than an envelope. The whole mapping becomes the hint set.
func classifyFlatRecord(event Event) ruleResult {
	id, _ := event.StringForPath("id")
	if id == "" {
		return noMatch()
	}
	recordType, _ := event.StringForPath("type")
	if recordType != "USER" && !event.HasKey("email") && !event.HasKey("firstName") {
		return noMatch()
	}
	return matched(&ClassifiedTarget{
		EntityID: id,
		Kind:     resolveKind(event.Source),
		Hints:    event.Flatten(),
	})
}

func classifyTypedObject(event Event) ruleResult {
	objectType, _ := event.StringForPath("objectType")
	switch strings.ToUpper(objectType) {
	case "USER", "USER_DEFINED", "CONTACT":
	default:
		return noMatch()
	}
	id, _ := event.StringForPath("objectId")
	if id == "" {
		return noMatch()
	}
	return matched(&ClassifiedTarget{
		EntityID: id,
		Kind:     resolveKind(event.Source),
		Hints:    event.PropertiesMap("properties"),
	})
}

// classifyNestedObject handles the expanded-format variant that wraps the
// record in an "object" sub-mapping.
func classifyNestedObject(event Event) ruleResult {
	obj := event.Get("object")
	if !obj.IsObject() {
		return noMatch()
	}
	nested := Source{data: obj}
	id, _ := nested.StringForPath("id")
	if id == "" {
		id, _ = nested.StringForPath("objectId")
	}
	if id == "" {
		return noMatch()
	}
	nestedType, _ := nested.StringForPath("type")
	if nestedType == "" {
		nestedType, _ = nested.StringForPath("objectType")
	}
	upperType := strings.ToUpper(nestedType)
	identified := strings.Contains(upperType, "USER") ||
		strings.Contains(upperType, "CONTACT") ||
		nested.HasKey("firstName") || nested.HasKey("firstname") || nested.HasKey("email")
	if !identified {
		return noMatch()
	}
	hints := nested.PropertiesMap("properties")
	if len(hints) == 0 {
		hints = nested.Flatten()
	}
	kind := resolveKind(nested)
	if kind == KindUnknown {
		kind = resolveKind(event.Source)
	}
	if strings.Contains(upperType, "CONTACT") {
		kind = KindContact
	}
	return matched(&ClassifiedTarget{EntityID: id, Kind: kind, Hints: hints})
}
