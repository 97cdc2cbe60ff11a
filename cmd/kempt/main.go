package main

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/homemade/kempt/server"
	"github.com/homemade/kempt/sync"
)

// main boots the bridge: config → sync context → handlers → HTTP server.
func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	syncContext := &sync.SyncContext{Config: cfg}

	hubspot := sync.HubSpotFetcherAndUpdater{SyncContext: syncContext}
	notion := sync.NotionFetcherAndUpdater{SyncContext: syncContext}

	hubspotHandler := sync.HubSpotWebhookHandler{
		SyncContext: syncContext,
		Resolver:    sync.RecordResolver{API: hubspot},
	}
	notionHandler := sync.NotionWebhookHandler{
		SyncContext: syncContext,
		Mapper:      sync.NotionMapper{SyncContext: syncContext},
		Notion:      notion,
		HubSpot:     hubspot,
	}

	router := server.NewRouter(notionHandler, hubspotHandler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("server started on %s", addr)
	log.Fatal(router.Run(addr))
}

// loadConfig layers the optional YAML config file over the defaults, then
// applies platform environment overrides. Railway style deploys set PORT
// rather than editing config.
func loadConfig() (sync.Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	var unmarshaler sync.YAMLConfigUnmarshaler
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return sync.Config{}, err
		}
		cfg, err := unmarshaler.Unmarshal()
		if err != nil {
			return sync.Config{}, err
		}
		return applyEnvOverrides(cfg)
	}
	defer f.Close()

	cfg, err := unmarshaler.Unmarshal(f)
	if err != nil {
		return sync.Config{}, err
	}
	return applyEnvOverrides(cfg)
}

func applyEnvOverrides(cfg sync.Config) (sync.Config, error) {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return cfg, fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}
	if token := os.Getenv("HUBSPOT_ACCESS_TOKEN"); token != "" {
		cfg.API.Keys.HubSpot = token
	}
	if token := os.Getenv("NOTION_TOKEN"); token != "" {
		cfg.API.Keys.Notion = token
	}
	if id := os.Getenv("NOTION_USERS_DATABASE_ID"); id != "" {
		cfg.Notion.UsersDatabaseID = id
	}
	return cfg, nil
}
