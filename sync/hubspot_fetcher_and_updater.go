package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	// ErrRecordNotFound reports a 404 from either records endpoint. Callers
	// use it to fall through to the alternate endpoint.
	ErrRecordNotFound = errors.New("record not found")
	// ErrUserConflict reports a 409 on user creation, meaning a user with
	// the same email already exists.
	ErrUserConflict = errors.New("user already exists")
)

// CRMUser is the subset of a HubSpot user record the bridge reads and writes.
type CRMUser struct {
	ID        string `json:"id,omitempty"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (u CRMUser) Names() NameRecord {
	return NameRecord{FirstName: u.FirstName, LastName: u.LastName}
}

// HubSpotFetcherAndUpdater handles all HubSpot API operations.
// It embeds *SyncContext for shared sync configuration.
type HubSpotFetcherAndUpdater struct {
	*SyncContext
}

// HubSpotAPIBuilder returns a new requests.Builder configured for the
// HubSpot API, with bearer auth already applied.
func (h HubSpotFetcherAndUpdater) HubSpotAPIBuilder() *requests.Builder {
	result := requests.
		URL(h.Config.API.Endpoints.HubSpot).
		Bearer(h.Config.API.Keys.HubSpot).
		Client(&http.Client{Timeout: HTTPRequestTimeout})
	if h.RecordRequests {
		result = result.Transport(requests.Record(nil, "testdata/.requests/hubspot"))
	}
	return result
}

// acceptAnyStatus replaces the builder's default 2xx check so callers can
// branch on the status code themselves.
func acceptAnyStatus(*http.Response) error {
	return nil
}

// exchange performs the request and hands back the raw status and body.
func (h HubSpotFetcherAndUpdater) exchange(b *requests.Builder, ctx context.Context) (int, string, error) {
	var status int
	var body string
	err := b.
		AddValidator(acceptAnyStatus).
		Handle(func(res *http.Response) error {
			status = res.StatusCode
			data, readErr := io.ReadAll(res.Body)
			if readErr != nil {
				return readErr
			}
			body = string(data)
			return nil
		}).
		Fetch(ctx)
	return status, body, err
}

// FetchUser fetches a user record from the users settings API.
func (h HubSpotFetcherAndUpdater) FetchUser(id string, ctx context.Context) (CRMUser, error) {
	status, body, err := h.exchange(h.HubSpotAPIBuilder().
		Pathf("/settings/v3/users/%s", id), ctx)
	if err != nil {
		return CRMUser{}, err
	}
	switch {
	case status == http.StatusNotFound:
		return CRMUser{}, ErrRecordNotFound
	case status < 200 || status > 299:
		return CRMUser{}, fmt.Errorf("fetch user %s: unexpected status %d: %s", id, status, body)
	}
	user := CRMUser{
		ID:        gjson.Get(body, "id").String(),
		Email:     gjson.Get(body, "email").String(),
		FirstName: gjson.Get(body, "firstName").String(),
		LastName:  gjson.Get(body, "lastName").String(),
	}
	if user.ID == "" {
		user.ID = id
	}
	return user, nil
}

// FetchContact fetches a contact record from the CRM objects API.
func (h HubSpotFetcherAndUpdater) FetchContact(id string, ctx context.Context) (CRMUser, error) {
	status, body, err := h.exchange(h.HubSpotAPIBuilder().
		Pathf("/crm/v3/objects/contacts/%s", id).
		Param("properties", "firstname,lastname,email"), ctx)
	if err != nil {
		return CRMUser{}, err
	}
	switch {
	case status == http.StatusNotFound:
		return CRMUser{}, ErrRecordNotFound
	case status < 200 || status > 299:
		return CRMUser{}, fmt.Errorf("fetch contact %s: unexpected status %d: %s", id, status, body)
	}
	return CRMUser{
		ID:        gjson.Get(body, "id").String(),
		Email:     gjson.Get(body, "properties.email").String(),
		FirstName: gjson.Get(body, "properties.firstname").String(),
		LastName:  gjson.Get(body, "properties.lastname").String(),
	}, nil
}

// namePayload builds a sparse update body, skipping empty fields so a
// partial record never blanks out the other name.
func namePayload(names NameRecord, firstKey, lastKey string) (string, error) {
	payload := "{}"
	var err error
	if names.FirstName != "" {
		payload, err = sjson.Set(payload, firstKey, names.FirstName)
		if err != nil {
			return "", err
		}
	}
	if names.LastName != "" {
		payload, err = sjson.Set(payload, lastKey, names.LastName)
		if err != nil {
			return "", err
		}
	}
	return payload, nil
}

// UpdateUserNames writes name fields to a user record. Accounts that do
// not allow PATCH on the users endpoint answer 405, in which case the
// update is retried as a PUT.
func (h HubSpotFetcherAndUpdater) UpdateUserNames(id string, names NameRecord, ctx context.Context) error {
	payload, err := namePayload(names, "firstName", "lastName")
	if err != nil {
		return err
	}
	if payload == "{}" {
		return nil
	}
	status, body, err := h.exchange(h.HubSpotAPIBuilder().
		Pathf("/settings/v3/users/%s", id).
		Method(http.MethodPatch).
		ContentType("application/json").
		BodyBytes([]byte(payload)), ctx)
	if err != nil {
		return err
	}
	if status == http.StatusMethodNotAllowed {
		log.Printf("HubSpot users endpoint rejected PATCH for %s, retrying as PUT", id)
		status, body, err = h.exchange(h.HubSpotAPIBuilder().
			Pathf("/settings/v3/users/%s", id).
			Method(http.MethodPut).
			ContentType("application/json").
			BodyBytes([]byte(payload)), ctx)
		if err != nil {
			return err
		}
	}
	switch {
	case status == http.StatusNotFound:
		return ErrRecordNotFound
	case status < 200 || status > 299:
		return fmt.Errorf("update user %s: unexpected status %d: %s", id, status, body)
	}
	return nil
}

// UpdateContactNames writes name properties to a contact record.
func (h HubSpotFetcherAndUpdater) UpdateContactNames(id string, names NameRecord, ctx context.Context) error {
	payload, err := namePayload(names, "properties.firstname", "properties.lastname")
	if err != nil {
		return err
	}
	if payload == "{}" {
		return nil
	}
	status, body, err := h.exchange(h.HubSpotAPIBuilder().
		Pathf("/crm/v3/objects/contacts/%s", id).
		Method(http.MethodPatch).
		ContentType("application/json").
		BodyBytes([]byte(payload)), ctx)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusNotFound:
		return ErrRecordNotFound
	case status < 200 || status > 299:
		return fmt.Errorf("update contact %s: unexpected status %d: %s", id, status, body)
	}
	return nil
}

// CreateUser creates a user and returns its new ID. A 409 surfaces as
// ErrUserConflict so the caller can look the existing user up by email.
func (h HubSpotFetcherAndUpdater) CreateUser(user CRMUser, ctx context.Context) (string, error) {
	status, body, err := h.exchange(h.HubSpotAPIBuilder().
		Path("/settings/v3/users").
		Post().
		BodyJSON(&user), ctx)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusConflict:
		return "", ErrUserConflict
	case status < 200 || status > 299:
		return "", fmt.Errorf("create user %s: unexpected status %d: %s", user.Email, status, body)
	}
	return gjson.Get(body, "id").String(), nil
}

// UpdateUser writes names and email to an existing user, with the same
// 405 PUT fallback as UpdateUserNames.
func (h HubSpotFetcherAndUpdater) UpdateUser(id string, user CRMUser, ctx context.Context) error {
	payload, err := namePayload(user.Names(), "firstName", "lastName")
	if err != nil {
		return err
	}
	if user.Email != "" {
		payload, err = sjson.Set(payload, "email", user.Email)
		if err != nil {
			return err
		}
	}
	if payload == "{}" {
		return nil
	}
	status, body, err := h.exchange(h.HubSpotAPIBuilder().
		Pathf("/settings/v3/users/%s", id).
		Method(http.MethodPatch).
		ContentType("application/json").
		BodyBytes([]byte(payload)), ctx)
	if err != nil {
		return err
	}
	if status == http.StatusMethodNotAllowed {
		log.Printf("HubSpot users endpoint rejected PATCH for %s, retrying as PUT", id)
		status, body, err = h.exchange(h.HubSpotAPIBuilder().
			Pathf("/settings/v3/users/%s", id).
			Method(http.MethodPut).
			ContentType("application/json").
			BodyBytes([]byte(payload)), ctx)
		if err != nil {
			return err
		}
	}
	switch {
	case status == http.StatusNotFound:
		return ErrRecordNotFound
	case status < 200 || status > 299:
		return fmt.Errorf("update user %s: unexpected status %d: %s", id, status, body)
	}
	return nil
}

// FindUserIDByEmail resolves an email to a user ID via the users listing.
func (h HubSpotFetcherAndUpdater) FindUserIDByEmail(email string, ctx context.Context) (string, error) {
	status, body, err := h.exchange(h.HubSpotAPIBuilder().
		Path("/settings/v3/users").
		Param("email", email), ctx)
	if err != nil {
		return "", err
	}
	if status < 200 || status > 299 {
		return "", fmt.Errorf("list users: unexpected status %d: %s", status, body)
	}
	id := gjson.Get(body, "results.0.id").String()
	if id == "" {
		return "", ErrRecordNotFound
	}
	return id, nil
}
