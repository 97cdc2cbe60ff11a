package sync

import (
	"log"

	"github.com/ttacon/libphonenumber"
)

// NotionUserRecord is a user row extracted from the Notion users database,
// with names normalized and the phone number in E.164 where possible.
type NotionUserRecord struct {
	PageID    string
	Email     string
	FirstName string
	LastName  string
	Role      string
	Phone     string
	// CRMCreated and CRMUserID come from the sync status properties
	// written by a previous run.
	CRMCreated bool
	CRMUserID  string
}

func (r NotionUserRecord) HasName() bool {
	return r.FirstName != "" || r.LastName != ""
}

// NotionMapper extracts user records from Notion page payloads using the
// configured property names.
type NotionMapper struct {
	*SyncContext
}

// ExtractUserRecord reads the user fields off a fetched page. Missing
// properties simply map to zero values; the caller decides what is
// required.
func (m NotionMapper) ExtractUserRecord(page Page) NotionUserRecord {
	names := m.Config.Notion.Properties
	record := NotionUserRecord{
		Email:     m.emailProperty(page, names.Email),
		FirstName: CapitalizeName(m.textProperty(page, names.FirstName)),
		LastName:  CapitalizeName(m.textProperty(page, names.LastName)),
		Role:      m.selectProperty(page, names.Role),
		CRMUserID: m.textProperty(page, names.CRMUserID),
	}
	record.PageID, _ = page.Source.StringForPath("id")
	record.CRMCreated, _ = page.Source.BoolForPath(propertyPath(names.Created) + ".checkbox")
	if raw, ok := page.Source.StringForPath(propertyPath(names.Phone) + ".phone_number"); ok && raw != "" {
		record.Phone = m.normalizePhone(raw)
	}
	return record
}

func propertyPath(name string) string {
	return "properties." + notionPropertyPath(name)
}

func (m NotionMapper) emailProperty(page Page, name string) string {
	value, _ := page.Source.StringForPath(propertyPath(name) + ".email")
	return value
}

// textProperty reads a rich text property, falling back to a title
// property since either can hold a name depending on the database schema.
func (m NotionMapper) textProperty(page Page, name string) string {
	base := propertyPath(name)
	if value, ok := page.Source.StringForPath(base + ".rich_text.0.text.content"); ok && value != "" {
		return value
	}
	value, _ := page.Source.StringForPath(base + ".title.0.text.content")
	return value
}

// selectProperty reads a select property, including the rollup form used
// when the role lives on a related page.
func (m NotionMapper) selectProperty(page Page, name string) string {
	base := propertyPath(name)
	if value, ok := page.Source.StringForPath(base + ".select.name"); ok && value != "" {
		return value
	}
	value, _ := page.Source.StringForPath(base + ".rollup.rollup_property.0.select.name")
	return value
}

// normalizePhone formats a phone number as E.164. Numbers that cannot be
// parsed are passed through untouched rather than dropped.
func (m NotionMapper) normalizePhone(raw string) string {
	number, err := libphonenumber.Parse(raw, m.Config.Notion.DefaultPhoneRegion)
	if err != nil {
		log.Printf("Could not parse phone number %q: %v", raw, err)
		return raw
	}
	return libphonenumber.Format(number, libphonenumber.E164)
}
