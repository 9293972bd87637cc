// Package asana implements the remote task source against the Asana REST API.
package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/randalmurphal/aa/internal/remote"
)

const (
	// DefaultBaseURL is the Asana API root.
	DefaultBaseURL = "https://app.asana.com/api/1.0"
	// pageSize is the Asana maximum for paginated listings.
	pageSize  = 100
	taskField = "gid,name,created_at,parent,num_subtasks"
)

func init() {
	remote.RegisterProvider(remote.ProviderAsana, func(cfg remote.Config) (remote.TaskSource, error) {
		c, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// Client talks to Asana with a personal access token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates an Asana client. cfg.BaseURL overrides DefaultBaseURL.
func NewClient(cfg remote.Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("asana access token is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   cfg.Token,
		http:    hc,
	}, nil
}

// Name identifies the backend.
func (c *Client) Name() remote.ProviderType {
	return remote.ProviderAsana
}

// ListRootTasks returns the tasks of a project that have no parent, oldest first.
func (c *Client) ListRootTasks(ctx context.Context, projectID string) ([]remote.Task, error) {
	tasks, err := c.listTasks(ctx, "list root tasks", "/projects/"+url.PathEscape(projectID)+"/tasks", "")
	if err != nil {
		return nil, err
	}
	roots := tasks[:0]
	for _, t := range tasks {
		if t.ParentID == "" {
			roots = append(roots, t)
		}
	}
	return roots, nil
}

// ListSubtasks returns the direct subtasks of a task, oldest first.
func (c *Client) ListSubtasks(ctx context.Context, taskID string) ([]remote.Task, error) {
	return c.listTasks(ctx, "list subtasks", "/tasks/"+url.PathEscape(taskID)+"/subtasks", taskID)
}

// RenameTask replaces a task's name.
func (c *Client) RenameTask(ctx context.Context, taskID, name string) error {
	body, err := json.Marshal(map[string]any{"data": map[string]string{"name": name}})
	if err != nil {
		return fmt.Errorf("encode rename: %w", err)
	}
	_, err = c.do(ctx, "rename task", http.MethodPut, "/tasks/"+url.PathEscape(taskID), nil, body)
	return err
}

// CheckAuth verifies the token by fetching the current user.
func (c *Client) CheckAuth(ctx context.Context) error {
	_, err := c.do(ctx, "check auth", http.MethodGet, "/users/me", url.Values{"opt_fields": {"gid"}}, nil)
	return err
}

// listTasks follows offset pagination until Asana stops returning next_page.
// parentID is stamped on tasks whose parent field was not returned.
func (c *Client) listTasks(ctx context.Context, op, path, parentID string) ([]remote.Task, error) {
	var all []remote.Task
	offset := ""
	for {
		q := url.Values{
			"opt_fields": {taskField},
			"limit":      {strconv.Itoa(pageSize)},
		}
		if offset != "" {
			q.Set("offset", offset)
		}
		data, err := c.do(ctx, op, http.MethodGet, path, q, nil)
		if err != nil {
			return nil, err
		}

		page := gjson.ParseBytes(data)
		var parseErr error
		page.Get("data").ForEach(func(_, item gjson.Result) bool {
			t, err := parseTask(item)
			if err != nil {
				parseErr = err
				return false
			}
			if t.ParentID == "" {
				t.ParentID = parentID
			}
			all = append(all, t)
			return true
		})
		if parseErr != nil {
			return nil, &remote.Error{Kind: remote.KindOther, Op: op, Err: parseErr}
		}

		offset = page.Get("next_page.offset").String()
		if offset == "" {
			break
		}
	}
	remote.SortByCreation(all)
	return all, nil
}

// parseTask reads one task object of a listing.
func parseTask(item gjson.Result) (remote.Task, error) {
	t := remote.Task{
		ID:          item.Get("gid").String(),
		Name:        item.Get("name").String(),
		ParentID:    item.Get("parent.gid").String(),
		NumSubtasks: remote.UnknownSubtasks,
	}
	if t.ID == "" {
		return t, fmt.Errorf("task without gid: %s", item.Raw)
	}
	if n := item.Get("num_subtasks"); n.Exists() && n.Type == gjson.Number {
		t.NumSubtasks = int(n.Int())
	}
	if created := item.Get("created_at").String(); created != "" {
		at, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return t, fmt.Errorf("task %s: created_at: %w", t.ID, err)
		}
		t.CreatedAt = at
	}
	return t, nil
}

// do sends one request and returns the response body of a 2xx reply.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, remote.FromTransport(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, remote.FromTransport(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, remote.FromResponse(op, resp, errorMessage(data))
	}
	return data, nil
}

// errorMessage pulls the human-readable messages out of an Asana error body.
func errorMessage(data []byte) string {
	var msgs []string
	gjson.GetBytes(data, "errors.#.message").ForEach(func(_, m gjson.Result) bool {
		msgs = append(msgs, m.String())
		return true
	})
	if len(msgs) == 0 {
		return ""
	}
	return strings.Join(msgs, "; ")
}
