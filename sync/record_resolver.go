package sync

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/iancoleman/strcase"
)

// RecordAPI is the CRM surface the resolver works against. Satisfied by
// HubSpotFetcherAndUpdater.
type RecordAPI interface {
	FetchUser(id string, ctx context.Context) (CRMUser, error)
	FetchContact(id string, ctx context.Context) (CRMUser, error)
	UpdateUserNames(id string, names NameRecord, ctx context.Context) error
	UpdateContactNames(id string, names NameRecord, ctx context.Context) error
}

// RecordResolver reads and writes name fields for an entity whose kind is
// only a guess. Every operation tries the likely endpoint first and falls
// back to the other on a not-found.
type RecordResolver struct {
	API RecordAPI
}

type recordEndpoint struct {
	kind   RecordKind
	fetch  func(id string, ctx context.Context) (CRMUser, error)
	update func(id string, names NameRecord, ctx context.Context) error
}

// endpointsFor orders the two record endpoints by the classifier's guess.
// Only an explicit contact guess puts contacts first; unknown entities are
// treated as users until the users endpoint says otherwise.
func (r RecordResolver) endpointsFor(kind RecordKind) []recordEndpoint {
	user := recordEndpoint{kind: KindUser, fetch: r.API.FetchUser, update: r.API.UpdateUserNames}
	contact := recordEndpoint{kind: KindContact, fetch: r.API.FetchContact, update: r.API.UpdateContactNames}
	if kind == KindContact {
		return []recordEndpoint{contact, user}
	}
	return []recordEndpoint{user, contact}
}

// FetchNames fetches the current names for a target, also reporting which
// endpoint actually held the record so the update goes to the same place.
func (r RecordResolver) FetchNames(target ClassifiedTarget, ctx context.Context) (NameRecord, RecordKind, error) {
	endpoints := r.endpointsFor(target.Kind)
	for i, endpoint := range endpoints {
		user, err := endpoint.fetch(target.EntityID, ctx)
		if err == nil {
			return user.Names(), endpoint.kind, nil
		}
		if !errors.Is(err, ErrRecordNotFound) {
			return NameRecord{}, KindUnknown, err
		}
		if i < len(endpoints)-1 {
			log.Printf("Record %s not found as %s, trying %s", target.EntityID, endpoint.kind, endpoints[i+1].kind)
		}
	}
	return NameRecord{}, KindUnknown, ErrRecordNotFound
}

// UpdateNames writes names back through the endpoint FetchNames resolved,
// falling back once more if the record moved in between.
func (r RecordResolver) UpdateNames(id string, kind RecordKind, names NameRecord, ctx context.Context) error {
	for _, endpoint := range r.endpointsFor(kind) {
		err := endpoint.update(id, names, ctx)
		if !errors.Is(err, ErrRecordNotFound) {
			return err
		}
	}
	return ErrRecordNotFound
}

// MergeNames fills out a fetched record with values the webhook payload
// itself carried. Fetched values win when present; payload hints fill the
// gaps; an explicit property change pair is applied last and overrides,
// since it is the freshest value HubSpot sent.
func MergeNames(fetched NameRecord, hints map[string]string) NameRecord {
	result := fetched
	if result.FirstName == "" {
		result.FirstName = hintValue(hints, "firstName")
	}
	if result.LastName == "" {
		result.LastName = hintValue(hints, "lastName")
	}
	if name, ok := hints["propertyName"]; ok {
		value := hints["propertyValue"]
		switch strings.ToLower(name) {
		case "firstname", "first name":
			if value != "" {
				result.FirstName = value
			}
		case "lastname", "last name":
			if value != "" {
				result.LastName = value
			}
		}
	}
	return result
}

// hintValue looks a name field up under its camel, lower and spaced
// spellings, since the payload formats disagree on key style.
func hintValue(hints map[string]string, key string) string {
	candidates := []string{
		key,
		strings.ToLower(key),
		strcase.ToDelimited(key, ' '),
	}
	for _, candidate := range candidates {
		for hintKey, value := range hints {
			if strings.EqualFold(hintKey, candidate) && value != "" {
				return value
			}
		}
	}
	return ""
}
