package sync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "https://api.hubapi.com", cfg.API.Endpoints.HubSpot)
	assert.Equal(t, "https://api.notion.com", cfg.API.Endpoints.Notion)
	assert.Equal(t, "2022-06-28", cfg.Notion.Version)
	assert.Equal(t, "✅ Email", cfg.Notion.Properties.Email)
	assert.Equal(t, "📝 HubSpot User ID", cfg.Notion.Properties.CRMUserID)
	assert.Equal(t, 5000, cfg.Server.Port)
}

func TestUnmarshalWithoutSourcesReturnsDefaults(t *testing.T) {
	cfg, err := YAMLConfigUnmarshaler{}.Unmarshal()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestUnmarshalLayersOverDefaults(t *testing.T) {
	yaml := `
api:
  keys:
    hubspot: hs-token
    notion: notion-token
notion:
  usersDatabaseID: db9
server:
  port: 8080
`
	cfg, err := YAMLConfigUnmarshaler{}.Unmarshal(strings.NewReader(yaml))
	require.NoError(t, err)
	assert.Equal(t, "hs-token", cfg.API.Keys.HubSpot)
	assert.Equal(t, "notion-token", cfg.API.Keys.Notion)
	assert.Equal(t, "db9", cfg.Notion.UsersDatabaseID)
	assert.Equal(t, 8080, cfg.Server.Port)
	// untouched values keep their defaults
	assert.Equal(t, "https://api.hubapi.com", cfg.API.Endpoints.HubSpot)
	assert.Equal(t, "✅ First Name", cfg.Notion.Properties.FirstName)
}

func TestUnmarshalExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_HUBSPOT_TOKEN", "secret-token")
	yaml := `
api:
  keys:
    hubspot: ${TEST_HUBSPOT_TOKEN}
`
	cfg, err := YAMLConfigUnmarshaler{}.Unmarshal(strings.NewReader(yaml))
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.API.Keys.HubSpot)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.API.Keys.HubSpot = "hs"
	assert.Error(t, cfg.Validate())

	cfg.API.Keys.Notion = "nt"
	assert.NoError(t, cfg.Validate())
}
