package sync

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
)

type NotionError map[string]interface{}

// SyncStatus is the outcome written back onto a Notion user page after a
// HubSpot sync.
type SyncStatus struct {
	UserID  string
	Created bool
}

// NotionFetcherAndUpdater handles all Notion API operations.
// It embeds *SyncContext for shared sync configuration.
type NotionFetcherAndUpdater struct {
	*SyncContext
}

// NotionAPIBuilder returns a new requests.Builder configured for the
// Notion API, with bearer auth and the API version header applied.
func (n NotionFetcherAndUpdater) NotionAPIBuilder() *requests.Builder {
	result := requests.
		URL(n.Config.API.Endpoints.Notion).
		Bearer(n.Config.API.Keys.Notion).
		Header("Notion-Version", n.Config.Notion.Version).
		Client(&http.Client{Timeout: HTTPRequestTimeout})
	if n.RecordRequests {
		result = result.Transport(requests.Record(nil, "testdata/.requests/notion"))
	}
	return result
}

// FetchUserPage retrieves a page with its property values.
func (n NotionFetcherAndUpdater) FetchUserPage(pageID string, ctx context.Context) (Page, error) {
	notionError := NotionError{}
	var json string
	err := n.NotionAPIBuilder().
		Pathf("/v1/pages/%s", pageID).
		ToString(&json).
		ErrorJSON(&notionError).
		Fetch(ctx)
	if err == nil {
		if !gjson.Valid(json) {
			log.Printf("Invalid Notion Response:\n%s", json)
			return Page{}, errors.New("invalid json response")
		}
	} else {
		log.Printf("Notion Error: %+v", notionError)
		return Page{}, err
	}
	return Page{Source: Source{data: gjson.Parse(json)}}, nil
}

// richText wraps a plain string the way the Notion API expects rich text
// property values.
func richText(content string) []map[string]interface{} {
	return []map[string]interface{}{
		{"text": map[string]interface{}{"content": content}},
	}
}

// UpdateSyncStatus records a completed HubSpot sync on the user page. The
// created date is only stamped when this sync created the HubSpot user.
func (n NotionFetcherAndUpdater) UpdateSyncStatus(pageID string, status SyncStatus, ctx context.Context) error {
	names := n.Config.Notion.Properties
	now := time.Now().UTC().Format(time.RFC3339)
	properties := map[string]interface{}{
		names.Created:     map[string]interface{}{"checkbox": true},
		names.CRMUserID:   map[string]interface{}{"rich_text": richText(status.UserID)},
		names.LastUpdated: map[string]interface{}{"date": map[string]interface{}{"start": now}},
	}
	if status.Created {
		properties[names.CreatedDate] = map[string]interface{}{"date": map[string]interface{}{"start": now}}
	}
	body := map[string]interface{}{"properties": properties}

	notionError := NotionError{}
	err := n.NotionAPIBuilder().
		Pathf("/v1/pages/%s", pageID).
		Method(http.MethodPatch).
		BodyJSON(&body).
		ErrorJSON(&notionError).
		Fetch(ctx)
	if err != nil {
		log.Printf("Notion Error: %+v", notionError)
	}
	return err
}

// QueryUserPages fetches one page of results from the users database.
// Pass the cursor from the previous call, or empty to start; the returned
// cursor is empty once the database is exhausted.
func (n NotionFetcherAndUpdater) QueryUserPages(cursor string, ctx context.Context) ([]Page, string, error) {
	databaseID := n.Config.Notion.UsersDatabaseID
	if databaseID == "" {
		return nil, "", errors.New("no users database configured")
	}
	query := map[string]interface{}{"page_size": 100}
	if cursor != "" {
		query["start_cursor"] = cursor
	}

	notionError := NotionError{}
	var json string
	err := n.NotionAPIBuilder().
		Pathf("/v1/databases/%s/query", databaseID).
		Post().
		BodyJSON(&query).
		ToString(&json).
		ErrorJSON(&notionError).
		Fetch(ctx)
	if err != nil {
		log.Printf("Notion Error: %+v", notionError)
		return nil, "", err
	}
	if !gjson.Valid(json) {
		log.Printf("Invalid Notion Response:\n%s", json)
		return nil, "", errors.New("invalid json response")
	}

	parsed := gjson.Parse(json)
	var pages []Page
	for _, result := range parsed.Get("results").Array() {
		pages = append(pages, Page{Source: Source{data: result}})
	}
	next := ""
	if parsed.Get("has_more").Bool() {
		next = parsed.Get("next_cursor").String()
	}
	return pages, next, nil
}

// notionPropertyPath builds a gjson path segment from a Notion property
// name, escaping path metacharacters. Property names are user controlled
// in Notion, so they can contain anything.
func notionPropertyPath(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
