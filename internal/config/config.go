// Package config provides configuration management for aa.
package config

import (
	"fmt"
	"strings"

	aaerrors "github.com/randalmurphal/aa/internal/errors"
	"github.com/randalmurphal/aa/internal/ident"
	"github.com/randalmurphal/aa/internal/remote"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = ".aa.yml"

// Project maps a project code to the remote project it numbers.
type Project struct {
	// Code is the identifier prefix, 2-5 uppercase letters (e.g., "PRJ").
	Code string `yaml:"code"`
	// ID is the remote project: an Asana project gid or a Jira project key.
	ID string `yaml:"id,omitempty"`

	// AsanaID is the older spelling of ID.
	AsanaID string `yaml:"asana_id,omitempty"`
}

// JiraConfig holds the Jira Cloud connection settings.
type JiraConfig struct {
	// URL is the Jira Cloud instance URL (e.g., "https://acme.atlassian.net").
	URL   string `yaml:"url,omitempty"`
	Email string `yaml:"email,omitempty"`
}

// Config is the contents of .aa.yml.
type Config struct {
	// Provider selects the remote backend: asana (default) or jira.
	Provider string `yaml:"provider,omitempty"`
	// Token is the Asana personal access token or Jira API token.
	Token string     `yaml:"token,omitempty"`
	Jira  JiraConfig `yaml:"jira,omitempty"`

	// Concurrency caps requests in flight (default 5).
	Concurrency int `yaml:"concurrency,omitempty"`
	// RequestsPerMinute is the request budget (default 1500).
	RequestsPerMinute int `yaml:"requests_per_minute,omitempty"`

	Projects []Project `yaml:"projects"`

	// Older keys, folded into the fields above by normalize.
	AsanaToken string `yaml:"asana_token,omitempty"`
	// Interactive was the setup wizard's prompt switch. It is only decoded so
	// strict parsing accepts files written for older versions; normalize
	// drops it.
	Interactive bool `yaml:"interactive,omitempty"`

	// Path is the file the config was read from.
	Path string `yaml:"-"`
	// Overridden lists the fields set from environment variables.
	Overridden []string `yaml:"-"`
}

// normalize trims values and folds legacy keys into their current names.
func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.Token = strings.TrimSpace(c.Token)
	c.AsanaToken = strings.TrimSpace(c.AsanaToken)
	if c.Token == "" {
		c.Token = c.AsanaToken
	}
	c.AsanaToken = ""
	c.Interactive = false
	c.Jira.URL = strings.TrimSpace(c.Jira.URL)
	c.Jira.Email = strings.TrimSpace(c.Jira.Email)
	for i := range c.Projects {
		p := &c.Projects[i]
		p.Code = strings.TrimSpace(p.Code)
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			p.ID = strings.TrimSpace(p.AsanaID)
		}
		p.AsanaID = ""
	}
}

// ProviderType returns the configured backend, Asana when unset.
func (c *Config) ProviderType() remote.ProviderType {
	if c.Provider == "" {
		return remote.ProviderAsana
	}
	return remote.ProviderType(c.Provider)
}

// Problems returns every validation failure, or nil for a usable config.
func (c *Config) Problems() []string {
	var problems []string

	provider := c.ProviderType()
	if provider != remote.ProviderAsana && provider != remote.ProviderJira {
		problems = append(problems, fmt.Sprintf("provider %q is not supported (use asana or jira)", c.Provider))
	}
	if c.Token == "" {
		problems = append(problems, "token is required (set token or AA_TOKEN)")
	}
	if provider == remote.ProviderJira {
		if c.Jira.URL == "" {
			problems = append(problems, "jira.url is required for the jira provider")
		}
		if c.Jira.Email == "" {
			problems = append(problems, "jira.email is required for the jira provider")
		}
	}
	if c.Concurrency < 0 {
		problems = append(problems, fmt.Sprintf("concurrency must be >= 0, got %d", c.Concurrency))
	}
	if c.RequestsPerMinute < 0 {
		problems = append(problems, fmt.Sprintf("requests_per_minute must be >= 0, got %d", c.RequestsPerMinute))
	}

	if len(c.Projects) == 0 {
		problems = append(problems, "projects: at least one project is required")
	}
	codes := make(map[string]int)
	ids := make(map[string]int)
	for i, p := range c.Projects {
		switch {
		case p.Code == "":
			problems = append(problems, fmt.Sprintf("projects[%d].code is required", i))
		case !ident.ValidCode(p.Code):
			problems = append(problems, fmt.Sprintf("projects[%d].code %q must be 2-5 uppercase letters", i, p.Code))
		default:
			if prev, dup := codes[p.Code]; dup {
				problems = append(problems, fmt.Sprintf("projects[%d].code %q duplicates projects[%d]", i, p.Code, prev))
			} else {
				codes[p.Code] = i
			}
		}
		if p.ID == "" {
			problems = append(problems, fmt.Sprintf("projects[%d].id is required", i))
		} else if prev, dup := ids[p.ID]; dup {
			problems = append(problems, fmt.Sprintf("projects[%d].id %q duplicates projects[%d]", i, p.ID, prev))
		} else {
			ids[p.ID] = i
		}
	}
	return problems
}

// Validate returns a configuration error listing every problem.
func (c *Config) Validate() error {
	problems := c.Problems()
	if len(problems) == 0 {
		return nil
	}
	return aaerrors.ErrConfigInvalid(c.Path, strings.Join(problems, "; "))
}

// Select returns the project with the given code, or every project when code
// is empty. An unknown code is a configuration error.
func (c *Config) Select(code string) ([]Project, error) {
	if code == "" {
		return c.Projects, nil
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, p := range c.Projects {
		if p.Code == code {
			return []Project{p}, nil
		}
	}
	return nil, aaerrors.ErrProjectUnknown(code)
}

// Remote returns the connection settings for the task source.
func (c *Config) Remote() remote.Config {
	rc := remote.Config{
		Provider: c.ProviderType(),
		Token:    c.Token,
	}
	if rc.Provider == remote.ProviderJira {
		rc.BaseURL = c.Jira.URL
		rc.Email = c.Jira.Email
	}
	return rc
}
