package sync

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/config"
)

// Config holds everything the bridge needs at runtime. It is loaded once at
// startup and passed in via SyncContext; business logic never reads the
// environment directly.
type Config struct {
	API    APISettings
	Notion NotionSettings
	Server ServerSettings
}

type APISettings struct {
	Keys struct {
		HubSpot string
		Notion  string
	}
	// Endpoints are API hosts, overridable for test servers.
	Endpoints struct {
		HubSpot string
		Notion  string
	}
}

type NotionSettings struct {
	Version            string
	UsersDatabaseID    string `yaml:"usersDatabaseID"`
	DefaultPhoneRegion string `yaml:"defaultPhoneRegion"`
	Properties         NotionPropertyNames
}

// NotionPropertyNames are the display names of the page properties in the
// users database. The defaults match the production database schema,
// emoji prefixes included.
type NotionPropertyNames struct {
	Email       string
	FirstName   string `yaml:"firstName"`
	LastName    string `yaml:"lastName"`
	Role        string
	Phone       string
	Created     string
	CRMUserID   string `yaml:"crmUserID"`
	LastUpdated string `yaml:"lastUpdated"`
	CreatedDate string `yaml:"createdDate"`
}

type ServerSettings struct {
	Host string
	Port int
}

// DefaultConfig returns the built-in defaults: production API hosts and the
// production users-database property schema.
func DefaultConfig() Config {
	var c Config
	c.API.Endpoints.HubSpot = "https://api.hubapi.com"
	c.API.Endpoints.Notion = "https://api.notion.com"
	c.Notion.Version = "2022-06-28"
	c.Notion.DefaultPhoneRegion = "US"
	c.Notion.Properties = NotionPropertyNames{
		Email:       "✅ Email",
		FirstName:   "✅ First Name",
		LastName:    "✅ Last Name",
		Role:        "✅ HubSpot Role",
		Phone:       "📝 Phone Number",
		Created:     "📝 HubSpot Created",
		CRMUserID:   "📝 HubSpot User ID",
		LastUpdated: "📝 HubSpot Last Updated",
		CreatedDate: "📝 HubSpot Created Date",
	}
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 5000
	return c
}

// Validate checks the credentials required at runtime are present.
func (c Config) Validate() error {
	if c.API.Keys.HubSpot == "" {
		return errors.New("hubspot access token is required")
	}
	if c.API.Keys.Notion == "" {
		return errors.New("notion token is required")
	}
	return nil
}

type ConfigUnmarshaler interface {
	Unmarshal(sources ...io.Reader) (Config, error)
}

// YAMLConfigUnmarshaler loads Config from YAML sources layered over the
// defaults, expanding ${ENV_VAR} references so secrets stay out of files.
type YAMLConfigUnmarshaler struct{}

func (u YAMLConfigUnmarshaler) Unmarshal(sources ...io.Reader) (Config, error) {
	result := DefaultConfig()
	if len(sources) == 0 {
		return result, nil
	}
	var options []config.YAMLOption
	for _, s := range sources {
		options = append(options, config.Source(s))
	}
	options = append(options, config.Expand(os.LookupEnv))
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, fmt.Errorf("failed to read yaml config %w", err)
	}
	readError := func(key string, cause error) error {
		return fmt.Errorf("failed to read '%s' from yaml config %w", key, cause)
	}
	key := "api"
	if yaml.Get(key).HasValue() {
		if err = yaml.Get(key).Populate(&result.API); err != nil {
			return result, readError(key, err)
		}
	}
	key = "notion"
	if yaml.Get(key).HasValue() {
		if err = yaml.Get(key).Populate(&result.Notion); err != nil {
			return result, readError(key, err)
		}
	}
	key = "server"
	if yaml.Get(key).HasValue() {
		if err = yaml.Get(key).Populate(&result.Server); err != nil {
			return result, readError(key, err)
		}
	}
	return result, nil
}
