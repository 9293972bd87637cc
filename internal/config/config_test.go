package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	aaerrors "github.com/randalmurphal/aa/internal/errors"
	"github.com/randalmurphal/aa/internal/remote"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".aa.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for envVar := range EnvVarMapping {
		t.Setenv(envVar, "")
	}
}

func TestLoad_Valid(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
token: "  secret  "
concurrency: 3
projects:
  - code: PRJ
    id: "1200000000001"
  - code: OPS
    id: "1200000000002"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Token != "secret" {
		t.Errorf("Token = %q, want secret", cfg.Token)
	}
	if cfg.ProviderType() != remote.ProviderAsana {
		t.Errorf("ProviderType = %q, want asana", cfg.ProviderType())
	}
	if cfg.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", cfg.Concurrency)
	}
	if len(cfg.Projects) != 2 || cfg.Projects[1].Code != "OPS" {
		t.Errorf("Projects = %+v", cfg.Projects)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
}

func TestLoad_LegacyKeys(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
asana_token: legacy-token
interactive: true
projects:
  - code: PRJ
    asana_id: "42"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Token != "legacy-token" {
		t.Errorf("Token = %q, want legacy-token", cfg.Token)
	}
	if cfg.Projects[0].ID != "42" {
		t.Errorf("ID = %q, want 42", cfg.Projects[0].ID)
	}
	if cfg.AsanaToken != "" || cfg.Interactive {
		t.Errorf("legacy keys not folded: asana_token=%q interactive=%v", cfg.AsanaToken, cfg.Interactive)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	aaErr := aaerrors.AsAaError(err)
	if aaErr == nil || aaErr.Code != aaerrors.CodeConfigMissing {
		t.Fatalf("err = %v, want CONFIG_MISSING", err)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "token: x\nprojectz: []\n")
	_, err := Load(path)
	aaErr := aaerrors.AsAaError(err)
	if aaErr == nil || aaErr.Code != aaerrors.CodeConfigInvalid {
		t.Fatalf("err = %v, want CONFIG_INVALID", err)
	}
}

func TestLoad_ListsEveryProblem(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
provider: trello
projects:
  - code: prj
    id: "1"
  - code: OPS
  - code: OPS
    id: "1"
`)

	_, err := Load(path)
	aaErr := aaerrors.AsAaError(err)
	if aaErr == nil || aaErr.Code != aaerrors.CodeConfigInvalid {
		t.Fatalf("err = %v, want CONFIG_INVALID", err)
	}

	for _, want := range []string{
		`provider "trello" is not supported`,
		"token is required",
		`projects[0].code "prj" must be 2-5 uppercase letters`,
		"projects[1].id is required",
		`projects[2].code "OPS" duplicates projects[1]`,
		`projects[2].id "1" duplicates projects[0]`,
	} {
		if !strings.Contains(aaErr.Why, want) {
			t.Errorf("Why = %q, missing %q", aaErr.Why, want)
		}
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "")
	_, err := Load(path)
	aaErr := aaerrors.AsAaError(err)
	if aaErr == nil || !strings.Contains(aaErr.Why, "at least one project") {
		t.Fatalf("err = %v, want missing projects", err)
	}
}

func TestLoad_Jira(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
provider: jira
token: tok
projects:
  - code: PRJ
    id: PRJ
`)

	_, err := Load(path)
	aaErr := aaerrors.AsAaError(err)
	if aaErr == nil {
		t.Fatal("expected error for jira without url/email")
	}
	if !strings.Contains(aaErr.Why, "jira.url is required") || !strings.Contains(aaErr.Why, "jira.email is required") {
		t.Errorf("Why = %q", aaErr.Why)
	}

	t.Setenv("AA_JIRA_URL", "https://acme.atlassian.net")
	t.Setenv("AA_JIRA_EMAIL", "me@acme.com")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load with env failed: %v", err)
	}
	rc := cfg.Remote()
	if rc.Provider != remote.ProviderJira || rc.BaseURL != "https://acme.atlassian.net" || rc.Email != "me@acme.com" || rc.Token != "tok" {
		t.Errorf("Remote() = %+v", rc)
	}
	if strings.Join(cfg.Overridden, ",") != "jira.email,jira.url" {
		t.Errorf("Overridden = %v", cfg.Overridden)
	}
}

func TestApplyEnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("AA_TOKEN", "from-env")
	t.Setenv("AA_PROVIDER", "JIRA")

	cfg := &Config{Token: "from-file"}
	overridden := ApplyEnvVars(cfg)

	if cfg.Token != "from-env" {
		t.Errorf("Token = %q, want from-env", cfg.Token)
	}
	if cfg.Provider != "jira" {
		t.Errorf("Provider = %q, want jira", cfg.Provider)
	}
	if len(overridden) != 2 || overridden[0] != "provider" || overridden[1] != "token" {
		t.Errorf("overridden = %v", overridden)
	}
}

func TestSelect(t *testing.T) {
	cfg := &Config{Projects: []Project{{Code: "PRJ", ID: "1"}, {Code: "OPS", ID: "2"}}}

	all, err := cfg.Select("")
	if err != nil || len(all) != 2 {
		t.Fatalf("Select(\"\") = %v, %v", all, err)
	}

	one, err := cfg.Select("ops")
	if err != nil || len(one) != 1 || one[0].ID != "2" {
		t.Fatalf("Select(ops) = %v, %v", one, err)
	}

	_, err = cfg.Select("XYZ")
	aaErr := aaerrors.AsAaError(err)
	if aaErr == nil || aaErr.Code != aaerrors.CodeProjectUnknown {
		t.Fatalf("err = %v, want PROJECT_UNKNOWN", err)
	}
}
