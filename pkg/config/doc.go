// Package config loads the YAML configuration of the parking feed service.
//
// Loading order: built-in defaults, then the YAML file, then environment
// overrides (PARKING_FEED_BASE_URL, REDIS_URL, PORT), then struct-tag
// validation. The access key lives inside feed.base_url and is never logged.
package config
