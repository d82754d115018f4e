package config

import "strings"

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "STEPGRAPH_"

// envKeys maps an environment suffix to its path in the config tree.
var envKeys = map[string][]string{
	"ADDR":           {"addr"},
	"LOG_LEVEL":      {"log_level"},
	"LOG_FORMAT":     {"log_format"},
	"MAX_STEPS":      {"max_steps"},
	"METRICS":        {"metrics"},
	"CATALOG_DIR":    {"catalog_dir"},
	"TOOLS_FILE":     {"tools_file"},
	"STORE_BACKEND":  {"store", "backend"},
	"REDIS_ADDR":     {"store", "redis", "addr"},
	"REDIS_PASSWORD": {"store", "redis", "password"},
	"REDIS_DB":       {"store", "redis", "db"},
	"REDIS_PREFIX":   {"store", "redis", "prefix"},
	"REDIS_RUN_TTL":  {"store", "redis", "run_ttl"},
	"BADGER_DIR":     {"store", "badger", "dir"},

	"STORE_ENCRYPTION_KEY": {"store", "encryption_key"},
	"STORE_FALLBACK_KEYS":  {"store", "fallback_keys"},
	"STORE_REDACT_KEYS":    {"store", "redact_keys"},
}

// fromEnv builds a nested map from the set STEPGRAPH_* variables.
// Values stay strings; the weakly typed decoder converts them.
func fromEnv(lookup func(string) (string, bool)) map[string]any {
	out := map[string]any{}
	for suffix, path := range envKeys {
		v, ok := lookup(EnvPrefix + suffix)
		if !ok {
			continue
		}
		node := out
		for _, p := range path[:len(path)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[p] = child
			}
			node = child
		}
		node[path[len(path)-1]] = strings.TrimSpace(v)
	}
	return out
}
