package config

import (
	"os"
	"sort"
	"strings"
)

// EnvVarMapping defines the mapping between environment variables and config paths.
var EnvVarMapping = map[string]string{
	"AA_TOKEN":      "token",
	"AA_PROVIDER":   "provider",
	"AA_JIRA_URL":   "jira.url",
	"AA_JIRA_EMAIL": "jira.email",
}

// ApplyEnvVars applies environment variable overrides to cfg.
// Returns a sorted list of paths that were overridden.
func ApplyEnvVars(cfg *Config) []string {
	var overridden []string

	for envVar, configPath := range EnvVarMapping {
		value := strings.TrimSpace(os.Getenv(envVar))
		if value == "" {
			continue
		}

		if applyEnvVar(cfg, configPath, value) {
			overridden = append(overridden, configPath)
		}
	}

	sort.Strings(overridden)
	return overridden
}

// applyEnvVar applies a single environment variable to the config.
// Returns true if the value was applied.
func applyEnvVar(cfg *Config, path string, value string) bool {
	switch path {
	case "token":
		cfg.Token = value
	case "provider":
		cfg.Provider = strings.ToLower(value)
	case "jira.url":
		cfg.Jira.URL = value
	case "jira.email":
		cfg.Jira.Email = value
	default:
		return false
	}
	return true
}
