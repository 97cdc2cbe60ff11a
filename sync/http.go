package sync

import "time"

// HTTPRequestTimeout is the default timeout for all HTTP requests to the
// Notion and HubSpot APIs.
const HTTPRequestTimeout = 60 * time.Second
