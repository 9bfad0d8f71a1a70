package config

import (
	"fmt"

	"github.com/adrg/xdg"
)

const (
	// ConfigFile is the config file path relative to the XDG config dirs.
	ConfigFile = "vmcatalog/config.yaml"

	// TokenCacheFile is the identity token cache path relative to the XDG
	// cache dir.
	TokenCacheFile = "vmcatalog/msal_cache.json"
)

// FindConfigFile searches the XDG config directories for ConfigFile.
func FindConfigFile() (string, bool) {
	path, err := xdg.SearchConfigFile(ConfigFile)
	if err != nil {
		return "", false
	}
	return path, true
}

// TokenCachePath returns the token cache location, creating its directory.
func TokenCachePath() (string, error) {
	path, err := xdg.CacheFile(TokenCacheFile)
	if err != nil {
		return "", fmt.Errorf("resolve token cache path: %w", err)
	}
	return path, nil
}
