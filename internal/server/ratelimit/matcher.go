package ratelimit

import (
	"net/http"
	"strings"
)

// unlimited is returned for routes that are never throttled.
var unlimited = EndpointConfig{}

// MatchEndpoint picks the endpoint configuration for a request. An exact path wins over a
// prefix; a configured path ending in "/" covers everything below it, so "/jobs/" matches
// "/jobs/{id}/rounds/{round}/results". Returns nil when nothing matches and the default
// limit applies.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if method == http.MethodGet && path == "/health" {
		cfg := unlimited
		return &cfg
	}

	var prefix *EndpointConfig
	for i := range configs {
		cfg := &configs[i]
		if cfg.Method != method {
			continue
		}
		if cfg.Path == path {
			return cfg
		}
		if prefix == nil && strings.HasSuffix(cfg.Path, "/") && strings.HasPrefix(path, cfg.Path) {
			prefix = cfg
		}
	}
	return prefix
}
