// Package jira implements the remote task source against Jira Cloud.
// Issues play the role of tasks: a project's top-level issues are root tasks
// and the issues whose parent is X are X's subtasks. The summary is the name.
package jira

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	v3 "github.com/ctreminiom/go-atlassian/v2/jira/v3"
	"github.com/ctreminiom/go-atlassian/v2/pkg/infra/models"

	"github.com/randalmurphal/aa/internal/remote"
)

func init() {
	remote.RegisterProvider(remote.ProviderJira, func(cfg remote.Config) (remote.TaskSource, error) {
		c, err := NewClient(ClientConfig{
			BaseURL:    cfg.BaseURL,
			Email:      cfg.Email,
			APIToken:   cfg.Token,
			HTTPClient: cfg.HTTPClient,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// ClientConfig holds the configuration for connecting to a Jira Cloud instance.
type ClientConfig struct {
	// BaseURL is the Jira Cloud instance URL (e.g., "https://acme.atlassian.net").
	BaseURL string
	// Email is the user's email address for basic auth.
	Email string
	// APIToken is the API token for basic auth.
	APIToken   string
	HTTPClient *http.Client
}

// Client wraps the go-atlassian Jira v3 client as a task source.
type Client struct {
	jira *v3.Client
	cfg  ClientConfig
}

// NewClient creates a new Jira Cloud client with basic auth.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jira base URL is required")
	}
	if cfg.Email == "" {
		return nil, fmt.Errorf("jira email is required")
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("jira API token is required")
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	client, err := v3.New(hc, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("create jira client: %w", err)
	}

	client.Auth.SetBasicAuth(cfg.Email, cfg.APIToken)
	client.Auth.SetUserAgent("aa/1.0")

	return &Client{jira: client, cfg: cfg}, nil
}

// searchFields are the only issue fields a listing needs.
var searchFields = []string{"summary", "created", "parent"}

// Name identifies the backend.
func (c *Client) Name() remote.ProviderType {
	return remote.ProviderJira
}

// ListRootTasks returns the issues of a project that have no parent, oldest first.
// projectID is the Jira project key.
func (c *Client) ListRootTasks(ctx context.Context, projectID string) ([]remote.Task, error) {
	return c.search(ctx, "list root tasks", rootsJQL(projectID))
}

// ListSubtasks returns the issues whose parent is taskID, oldest first.
func (c *Client) ListSubtasks(ctx context.Context, taskID string) ([]remote.Task, error) {
	return c.search(ctx, "list subtasks", childrenJQL(taskID))
}

// RenameTask replaces an issue's summary without notifying watchers.
func (c *Client) RenameTask(ctx context.Context, taskID, name string) error {
	payload := &models.IssueScheme{
		Fields: &models.IssueFieldsScheme{Summary: name},
	}
	resp, err := c.jira.Issue.Update(ctx, taskID, false, payload, nil, nil)
	if err != nil {
		return remoteError("rename task", resp, err)
	}
	return nil
}

// CheckAuth verifies the client can authenticate with Jira.
func (c *Client) CheckAuth(ctx context.Context) error {
	_, resp, err := c.jira.MySelf.Details(ctx, nil)
	if err != nil {
		return remoteError("check auth", resp, err)
	}
	return nil
}

// search fetches every issue matching jql, following page tokens.
func (c *Client) search(ctx context.Context, op, jql string) ([]remote.Task, error) {
	var all []remote.Task
	nextPageToken := ""

	for {
		result, resp, err := c.jira.Issue.Search.SearchJQL(
			ctx,
			jql,
			searchFields,
			nil, // no expand
			50,  // maxResults per page
			nextPageToken,
		)
		if err != nil {
			return nil, remoteError(op, resp, err)
		}

		for _, issue := range result.Issues {
			if issue == nil {
				continue
			}
			all = append(all, convertIssue(issue))
		}

		if result.NextPageToken == "" || len(result.Issues) == 0 {
			break
		}
		nextPageToken = result.NextPageToken
	}

	remote.SortByCreation(all)
	return all, nil
}

func rootsJQL(projectKey string) string {
	return fmt.Sprintf("project = %q AND parent is EMPTY ORDER BY created ASC", projectKey)
}

func childrenJQL(issueKey string) string {
	return fmt.Sprintf("parent = %q ORDER BY created ASC", issueKey)
}

// convertIssue maps a go-atlassian IssueScheme to a task. Jira does not report
// child counts for parent links, so NumSubtasks is always unknown.
func convertIssue(issue *models.IssueScheme) remote.Task {
	t := remote.Task{
		ID:          issue.Key,
		NumSubtasks: remote.UnknownSubtasks,
	}
	if issue.Fields == nil {
		return t
	}
	f := issue.Fields
	t.Name = f.Summary
	t.ParentID = safeParentKey(f.Parent)
	if f.Created != nil {
		t.CreatedAt = time.Time(*f.Created)
	}
	return t
}

func safeParentKey(p *models.ParentScheme) string {
	if p == nil {
		return ""
	}
	return p.Key
}

// remoteError classifies a go-atlassian failure by its HTTP status.
func remoteError(op string, resp *models.ResponseScheme, err error) error {
	if resp == nil || resp.Response == nil {
		return remote.FromTransport(op, err)
	}
	rerr := remote.FromResponse(op, resp.Response, "")
	rerr.Err = err
	return rerr
}
