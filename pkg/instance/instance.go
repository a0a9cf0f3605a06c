package instance

import (
	"os"
	"strings"
)

const envInstanceID = "STOREFRONT_INSTANCE_ID"

// GetID identifies the running process in logs. It prefers STOREFRONT_INSTANCE_ID,
// then the platform dyno name, then the hostname.
func GetID(fallback string) string {
	for _, key := range []string{envInstanceID, "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}
