package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecordAPI struct {
	users           map[string]CRMUser
	contacts        map[string]CRMUser
	updatedUsers    map[string]NameRecord
	updatedContacts map[string]NameRecord
}

func newFakeRecordAPI() *fakeRecordAPI {
	return &fakeRecordAPI{
		users:           make(map[string]CRMUser),
		contacts:        make(map[string]CRMUser),
		updatedUsers:    make(map[string]NameRecord),
		updatedContacts: make(map[string]NameRecord),
	}
}

func (f *fakeRecordAPI) FetchUser(id string, ctx context.Context) (CRMUser, error) {
	if user, ok := f.users[id]; ok {
		return user, nil
	}
	return CRMUser{}, ErrRecordNotFound
}

func (f *fakeRecordAPI) FetchContact(id string, ctx context.Context) (CRMUser, error) {
	if contact, ok := f.contacts[id]; ok {
		return contact, nil
	}
	return CRMUser{}, ErrRecordNotFound
}

func (f *fakeRecordAPI) UpdateUserNames(id string, names NameRecord, ctx context.Context) error {
	if _, ok := f.users[id]; !ok {
		return ErrRecordNotFound
	}
	f.updatedUsers[id] = names
	return nil
}

func (f *fakeRecordAPI) UpdateContactNames(id string, names NameRecord, ctx context.Context) error {
	if _, ok := f.contacts[id]; !ok {
		return ErrRecordNotFound
	}
	f.updatedContacts[id] = names
	return nil
}

func TestFetchNamesPrefersUsersForUnknownKind(t *testing.T) {
	api := newFakeRecordAPI()
	api.users["1"] = CRMUser{ID: "1", FirstName: "john", LastName: "smith"}
	api.contacts["1"] = CRMUser{ID: "1", FirstName: "other", LastName: "record"}
	resolver := RecordResolver{API: api}

	names, kind, err := resolver.FetchNames(ClassifiedTarget{EntityID: "1"}, context.Background())
	require.NoError(t, err)
	assert.Equal(t, KindUser, kind)
	assert.Equal(t, NameRecord{FirstName: "john", LastName: "smith"}, names)
}

func TestFetchNamesFallsBackToContacts(t *testing.T) {
	api := newFakeRecordAPI()
	api.contacts["2"] = CRMUser{ID: "2", FirstName: "ana"}
	resolver := RecordResolver{API: api}

	names, kind, err := resolver.FetchNames(ClassifiedTarget{EntityID: "2"}, context.Background())
	require.NoError(t, err)
	assert.Equal(t, KindContact, kind)
	assert.Equal(t, "ana", names.FirstName)
}

func TestFetchNamesContactGuessTriesContactsFirst(t *testing.T) {
	api := newFakeRecordAPI()
	api.users["3"] = CRMUser{ID: "3", FirstName: "user"}
	api.contacts["3"] = CRMUser{ID: "3", FirstName: "contact"}
	resolver := RecordResolver{API: api}

	names, kind, err := resolver.FetchNames(ClassifiedTarget{EntityID: "3", Kind: KindContact}, context.Background())
	require.NoError(t, err)
	assert.Equal(t, KindContact, kind)
	assert.Equal(t, "contact", names.FirstName)
}

func TestFetchNamesNotFoundAnywhere(t *testing.T) {
	resolver := RecordResolver{API: newFakeRecordAPI()}
	_, _, err := resolver.FetchNames(ClassifiedTarget{EntityID: "404"}, context.Background())
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestUpdateNamesFallsBackToContacts(t *testing.T) {
	api := newFakeRecordAPI()
	api.contacts["5"] = CRMUser{ID: "5"}
	resolver := RecordResolver{API: api}

	err := resolver.UpdateNames("5", KindUser, NameRecord{FirstName: "Lee"}, context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Lee", api.updatedContacts["5"].FirstName)
	assert.Empty(t, api.updatedUsers)
}

func TestMergeNamesFetchedValuesWin(t *testing.T) {
	merged := MergeNames(
		NameRecord{FirstName: "john", LastName: "smith"},
		map[string]string{"firstName": "ignored", "lastName": "ignored"},
	)
	assert.Equal(t, NameRecord{FirstName: "john", LastName: "smith"}, merged)
}

func TestMergeNamesHintsFillEmptyFields(t *testing.T) {
	merged := MergeNames(
		NameRecord{FirstName: "john"},
		map[string]string{"lastName": "smith"},
	)
	assert.Equal(t, NameRecord{FirstName: "john", LastName: "smith"}, merged)
}

func TestMergeNamesSpacedHintKeys(t *testing.T) {
	merged := MergeNames(
		NameRecord{},
		map[string]string{"First Name": "ana", "Last Name": "diaz"},
	)
	assert.Equal(t, NameRecord{FirstName: "ana", LastName: "diaz"}, merged)
}

func TestMergeNamesPropertyChangeOverrides(t *testing.T) {
	// an explicit property change is fresher than the fetched record
	merged := MergeNames(
		NameRecord{FirstName: "stale", LastName: "smith"},
		map[string]string{"propertyName": "firstname", "propertyValue": "fresh"},
	)
	assert.Equal(t, NameRecord{FirstName: "fresh", LastName: "smith"}, merged)
}

func TestMergeNamesEmptyPropertyValueDoesNotBlank(t *testing.T) {
	merged := MergeNames(
		NameRecord{FirstName: "keep"},
		map[string]string{"propertyName": "firstname", "propertyValue": ""},
	)
	assert.Equal(t, "keep", merged.FirstName)
}
