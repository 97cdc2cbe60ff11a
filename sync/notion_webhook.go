package sync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/tidwall/gjson"
)

// UserPageAPI is the Notion surface the handler needs. Satisfied by
// NotionFetcherAndUpdater.
type UserPageAPI interface {
	FetchUserPage(pageID string, ctx context.Context) (Page, error)
	UpdateSyncStatus(pageID string, status SyncStatus, ctx context.Context) error
	QueryUserPages(cursor string, ctx context.Context) ([]Page, string, error)
}

// UserDirectoryAPI is the HubSpot user provisioning surface. Satisfied by
// HubSpotFetcherAndUpdater.
type UserDirectoryAPI interface {
	CreateUser(user CRMUser, ctx context.Context) (string, error)
	UpdateUser(id string, user CRMUser, ctx context.Context) error
	FindUserIDByEmail(email string, ctx context.Context) (string, error)
}

// notionEventTypes are the page events that can require a sync.
var notionEventTypes = map[string]bool{
	"page.created":            true,
	"page.updated":            true,
	"page.properties_updated": true,
}

// NotionWebhookHandler provisions HubSpot users in response to Notion
// page events on the users database.
type NotionWebhookHandler struct {
	*SyncContext
	Mapper  NotionMapper
	Notion  UserPageAPI
	HubSpot UserDirectoryAPI
}

// HandleDelivery processes one Notion webhook event.
func (h NotionWebhookHandler) HandleDelivery(payload []byte, ctx context.Context) Outcome {
	if !gjson.ValidBytes(payload) {
		return errorOutcome("", "invalid webhook payload format")
	}
	parsed := gjson.ParseBytes(payload)
	if !parsed.IsObject() {
		return errorOutcome("", "invalid webhook payload format")
	}
	event := Event{Source{data: parsed}}

	eventType, _ := event.StringForPath("type")
	if !notionEventTypes[eventType] {
		return ignoredOutcome("", fmt.Sprintf("event type %s not handled", eventType))
	}

	pageID := h.pageIDFor(event)
	if pageID == "" {
		return errorOutcome("", "no page ID found in event")
	}
	if !h.isUserPage(event) {
		return ignoredOutcome("", "not a user page")
	}
	return h.syncUserOutcome(pageID, ctx)
}

// pageIDFor extracts the page ID, preferring the entity reference over the
// older data.object shape.
func (h NotionWebhookHandler) pageIDFor(event Event) string {
	if entityType, _ := event.StringForPath("entity.type"); entityType == "page" {
		id, _ := event.StringForPath("entity.id")
		return id
	}
	id, _ := event.StringForPath("data.object.id")
	return id
}

// isUserPage reports whether the event concerns a page in the configured
// users database. The parent reference sits at data.parent for property
// update events and data.object.parent for page events. When no database
// is configured every database page is accepted.
func (h NotionWebhookHandler) isUserPage(event Event) bool {
	if entityType, _ := event.StringForPath("entity.type"); entityType != "page" {
		return false
	}
	parent := event.Get("data.parent")
	if !parent.IsObject() {
		parent = event.Get("data.object.parent")
	}
	parentType := parent.Get("type").String()
	if parentType != "database" && parentType != "database_id" {
		return false
	}
	databaseID := parent.Get("id").String()
	if databaseID == "" {
		databaseID = parent.Get("database_id").String()
	}
	if databaseID == "" {
		return false
	}
	usersDatabaseID := h.Config.Notion.UsersDatabaseID
	if usersDatabaseID == "" {
		return true
	}
	// Notion renders the same ID with and without hyphens.
	return strings.ReplaceAll(databaseID, "-", "") == strings.ReplaceAll(usersDatabaseID, "-", "")
}

func (h NotionWebhookHandler) syncUserOutcome(pageID string, ctx context.Context) (result Outcome) {
	defer func() {
		if r := recover(); r != nil {
			result = Outcome{
				Status:  StatusError,
				Message: fmt.Sprintf("panic syncing user: %v", r),
				PageID:  pageID,
			}
		}
	}()
	created, userID, err := h.SyncUser(pageID, ctx)
	if err != nil {
		return Outcome{
			Status:  StatusError,
			Message: fmt.Sprintf("failed to sync user %s: %v", pageID, err),
			PageID:  pageID,
		}
	}
	action := "updated"
	if created {
		action = "created"
	}
	return Outcome{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("user %s synced to HubSpot (%s)", pageID, action),
		UserID:  userID,
		PageID:  pageID,
	}
}

// SyncUser syncs a single Notion user page to HubSpot: users already
// stamped with a HubSpot ID are updated, everyone else is created. A
// creation conflict means the user exists under the same email, so the
// sync resolves the ID and updates instead.
func (h NotionWebhookHandler) SyncUser(pageID string, ctx context.Context) (created bool, userID string, err error) {
	page, err := h.Notion.FetchUserPage(pageID, ctx)
	if err != nil {
		return false, "", err
	}
	record := h.Mapper.ExtractUserRecord(page)
	if record.Email == "" {
		return false, "", errors.New("user must have an email address")
	}
	if !record.HasName() {
		return false, "", errors.New("user must have at least a first or last name")
	}
	user := CRMUser{
		Email:     record.Email,
		FirstName: record.FirstName,
		LastName:  record.LastName,
	}

	if record.CRMCreated && record.CRMUserID != "" {
		log.Printf("User %s already exists in HubSpot (ID: %s), updating", record.Email, record.CRMUserID)
		userID = record.CRMUserID
		if err = h.HubSpot.UpdateUser(userID, user, ctx); err != nil {
			return false, "", err
		}
	} else {
		userID, err = h.HubSpot.CreateUser(user, ctx)
		switch {
		case errors.Is(err, ErrUserConflict):
			log.Printf("User %s already exists in HubSpot, resolving ID by email", record.Email)
			userID, err = h.HubSpot.FindUserIDByEmail(record.Email, ctx)
			if err != nil {
				return false, "", err
			}
			if err = h.HubSpot.UpdateUser(userID, user, ctx); err != nil {
				return false, "", err
			}
		case err != nil:
			return false, "", err
		default:
			created = true
		}
	}

	h.recordSyncStatus(pageID, SyncStatus{UserID: userID, Created: created}, ctx)
	return created, userID, nil
}

// recordSyncStatus stamps the sync result back onto the page. Failures are
// logged but never fail the sync, the HubSpot side already succeeded.
func (h NotionWebhookHandler) recordSyncStatus(pageID string, status SyncStatus, ctx context.Context) {
	if err := h.Notion.UpdateSyncStatus(pageID, status, ctx); err != nil {
		log.Printf("Warning: could not update sync status for page %s: %v", pageID, err)
	}
}

// SyncSummary reports the result of a bulk sync over the users database.
type SyncSummary struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// SyncAllUsers walks the whole users database and syncs every page, for
// initial seeding or manual recovery. Individual failures are logged and
// counted, never fatal.
func (h NotionWebhookHandler) SyncAllUsers(ctx context.Context) (SyncSummary, error) {
	var summary SyncSummary
	cursor := ""
	for {
		pages, next, err := h.Notion.QueryUserPages(cursor, ctx)
		if err != nil {
			return summary, err
		}
		for _, page := range pages {
			pageID, _ := page.Source.StringForPath("id")
			if pageID == "" {
				summary.Failed++
				continue
			}
			if _, _, err := h.SyncUser(pageID, ctx); err != nil {
				log.Printf("Failed to sync user page %s: %v", pageID, err)
				summary.Failed++
				continue
			}
			summary.Synced++
		}
		if next == "" {
			return summary, nil
		}
		cursor = next
	}
}
