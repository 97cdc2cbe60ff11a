package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func eventFromJSON(t *testing.T, json string) Event {
	t.Helper()
	require.True(t, gjson.Valid(json), "test fixture must be valid json")
	return Event{Source{data: gjson.Parse(json)}}
}

func TestClassifyPropertyChange(t *testing.T) {
	event := eventFromJSON(t, `{
		"subscriptionType": "contact.propertyChange",
		"objectId": 123,
		"propertyName": "firstname",
		"propertyValue": "jane"
	}`)
	c := ClassifyEvent(event)
	require.False(t, c.Ignored)
	require.NotNil(t, c.Target)
	assert.Equal(t, "property-change", c.Rule)
	assert.Equal(t, "123", c.Target.EntityID)
	assert.Equal(t, "jane", c.Target.Hints["propertyValue"])
	assert.Equal(t, "firstname", c.Target.Hints["propertyName"])
}

func TestClassifyPropertyChangeIgnoresNonNameFields(t *testing.T) {
	event := eventFromJSON(t, `{
		"eventType": "object.propertyChange",
		"objectId": 123,
		"propertyName": "phone",
		"propertyValue": "555-0100"
	}`)
	c := ClassifyEvent(event)
	assert.True(t, c.Ignored)
	assert.Equal(t, "property-change", c.Rule)
	assert.Contains(t, c.Reason, "phone")
}

func TestClassifyContactWebhook(t *testing.T) {
	event := eventFromJSON(t, `{
		"eventType": "contact.creation",
		"contactId": 456,
		"properties": {"firstname": "bob", "email": "bob@example.com"}
	}`)
	c := ClassifyEvent(event)
	require.False(t, c.Ignored)
	assert.Equal(t, "contact-webhook", c.Rule)
	assert.Equal(t, "456", c.Target.EntityID)
	assert.Equal(t, KindContact, c.Target.Kind)
	assert.Equal(t, "bob", c.Target.Hints["firstname"])
}

func TestClassifyContactWebhookFlatProperties(t *testing.T) {
	event := eventFromJSON(t, `{"contactId": 7, "firstname": "amy"}`)
	c := ClassifyEvent(event)
	require.False(t, c.Ignored)
	assert.Equal(t, "contact-webhook", c.Rule)
	assert.Equal(t, KindContact, c.Target.Kind)
	assert.Equal(t, "amy", c.Target.Hints["firstname"])
}

func TestClassifyExpandedObject(t *testing.T) {
	event := eventFromJSON(t, `{
		"eventType": "user.propertyChange",
		"occurredAt": 1719742345000,
		"objectId": "42",
		"propertyName": "lastname",
		"propertyValue": "doe"
	}`)
	c := ClassifyEvent(event)
	require.False(t, c.Ignored)
	assert.Equal(t, "expanded-object", c.Rule)
	assert.Equal(t, "42", c.Target.EntityID)
	assert.Equal(t, "doe", c.Target.Hints["lastname"])
}

func TestClassifyExpandedObjectContactTypeID(t *testing.T) {
	event := eventFromJSON(t, `{
		"eventType": "object.creation",
		"subscriptionId": 9001,
		"objectId": "9",
		"objectTypeId": "0-1",
		"properties": {"firstname": "al"}
	}`)
	c := ClassifyEvent(event)
	require.False(t, c.Ignored)
	assert.Equal(t, "expanded-object", c.Rule)
	assert.Equal(t, KindContact, c.Target.Kind)
	assert.Equal(t, "al", c.Target.Hints["firstname"])
}

func TestClassifyTypedObject(t *testing.T) {
	event := eventFromJSON(t, `{"objectType": "USER", "objectId": "55"}`)
	c := ClassifyEvent(event)
	require.False(t, c.Ignored)
	assert.Equal(t, "typed-object", c.Rule)
	assert.Equal(t, "55", c.Target.EntityID)
}

func TestClassifyBareObjectID(t *testing.T) {
	event := eventFromJSON(t, `{"objectId": "314"}`)
	c := ClassifyEvent(event)
	require.False(t, c.Ignored)
	assert.Equal(t, "bare-object-id", c.Rule)
	assert.Equal(t, "314", c.Target.EntityID)
	assert.Equal(t, KindUnknown, c.Target.Kind)
}

func TestClassifyBareUserID(t *testing.T) {
	event := eventFromJSON(t, `{"userId": "27"}`)
	c := ClassifyEvent(event)
	require.False(t, c.Ignored)
	assert.Equal(t, "bare-user-id", c.Rule)
	assert.Equal(t, KindUser, c.Target.Kind)
}

func TestClassifyFlatRecord(t *testing.T) {
	event := eventFromJSON(t, `{
		"id": "88",
		"type": "USER",
		"email": "pat@example.com",
		"firstName": "pat"
	}`)
	c := ClassifyEvent(event)
	require.False(t, c.Ignored)
	assert.Equal(t, "flat-record", c.Rule)
	assert.Equal(t, "88", c.Target.EntityID)
	assert.Equal(t, "pat", c.Target.Hints["firstName"])
}

func TestClassifyNestedObject(t *testing.T) {
	event := eventFromJSON(t, `{
		"event": "updated",
		"object": {"id": "62", "type": "USER", "firstName": "kim"}
	}`)
	c := ClassifyEvent(event)
	require.False(t, c.Ignored)
	assert.Equal(t, "nested-object", c.Rule)
	assert.Equal(t, "62", c.Target.EntityID)
	assert.Equal(t, "kim", c.Target.Hints["firstName"])
}

func TestClassifyUnrecognizedPayload(t *testing.T) {
	event := eventFromJSON(t, `{"hello": "world"}`)
	c := ClassifyEvent(event)
	assert.True(t, c.Ignored)
	assert.Nil(t, c.Target)
	assert.Contains(t, c.Reason, "no user id")
}

func TestRecordKindString(t *testing.T) {
	assert.Equal(t, "user", KindUser.String())
	assert.Equal(t, "contact", KindContact.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
