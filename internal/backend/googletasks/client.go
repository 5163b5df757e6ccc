// Package googletasks implements remote.Tree on the Google Tasks API.
//
// Every tree node is a task list whose title is derived from the node path;
// the node's children are the tasks of that list, ordered by position.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"firetodo/internal/backend/remote"
	"firetodo/internal/config"
	"firetodo/internal/task"
)

const (
	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"

	// ListTitlePrefix prefixes the title of every list this package owns.
	ListTitlePrefix = "firetodo "

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

var (
	// ErrAuth is returned when the API rejects the stored credentials.
	ErrAuth = errors.New("token expired or revoked (run: firetodo login)")

	// ErrNotFound is returned when a list or task no longer exists.
	ErrNotFound = errors.New("not found")
)

// Client implements remote.Tree using the Google Tasks API.
type Client struct {
	svc *tasks.Service

	mu    sync.Mutex
	lists map[string]string // node path -> task list ID
}

var _ remote.Tree = (*Client)(nil)

// OAuthConfig reads the OAuth client credentials from the config directory.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}
	return oauthConfig, nil
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	token, err := LoadToken(cfg.TokenPath())
	if err != nil {
		return nil, err
	}

	// The token source refreshes expired access tokens on demand.
	return NewWithHTTPClient(ctx, oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, token)))
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc, lists: make(map[string]string)}, nil
}

// ListTitle returns the title of the task list backing path.
func ListTitle(path string) string {
	return ListTitlePrefix + path
}

// Children implements remote.Tree. Completed and hidden tasks are included;
// subtasks are not.
func (c *Client) Children(ctx context.Context, path string) ([]remote.Node, error) {
	listID, ok, err := c.listID(ctx, path, false)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	items, err := c.listTasks(ctx, listID)
	if err != nil {
		return nil, err
	}

	nodes := make([]remote.Node, 0, len(items))
	for _, it := range items {
		value, err := task.EncodeRecord(task.Task{
			Title:     it.Title,
			Completed: it.Status == statusCompleted,
		})
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, remote.Node{Key: it.Id, Value: value})
	}
	return nodes, nil
}

// SetChildren implements remote.Tree. It deletes every task in the list and
// inserts values in order. The list is created if it does not exist.
func (c *Client) SetChildren(ctx context.Context, path string, values []json.RawMessage) error {
	records := make([]task.Task, 0, len(values))
	for i, v := range values {
		t, ok := task.DecodeRecord(v)
		if !ok {
			return fmt.Errorf("child %d of %s: %w", i, path, task.ErrMalformed)
		}
		records = append(records, t)
	}

	listID, _, err := c.listID(ctx, path, true)
	if err != nil {
		return err
	}

	existing, err := c.listTasks(ctx, listID)
	if err != nil {
		return err
	}
	for _, it := range existing {
		if err := c.deleteTask(ctx, listID, it.Id); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	var previous string
	for _, t := range records {
		id, err := c.insertTask(ctx, listID, previous, t)
		if err != nil {
			return err
		}
		previous = id
	}
	return nil
}

// listID resolves the task list for path, creating it when create is set.
func (c *Client) listID(ctx context.Context, path string, create bool) (string, bool, error) {
	c.mu.Lock()
	id, ok := c.lists[path]
	c.mu.Unlock()
	if ok {
		return id, true, nil
	}

	title := ListTitle(path)
	err := withTimeout(ctx, func(ctx context.Context) error {
		return c.svc.Tasklists.List().MaxResults(100).Pages(ctx, func(resp *tasks.TaskLists) error {
			for _, list := range resp.Items {
				if id == "" && strings.TrimSpace(list.Title) == title {
					id = list.Id
				}
			}
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}

	if id == "" {
		if !create {
			return "", false, nil
		}
		err := withTimeout(ctx, func(ctx context.Context) error {
			list, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: title}).Context(ctx).Do()
			if err != nil {
				return err
			}
			id = list.Id
			return nil
		})
		if err != nil {
			return "", false, err
		}
	}

	c.mu.Lock()
	c.lists[path] = id
	c.mu.Unlock()
	return id, true, nil
}

// listTasks returns the top-level tasks of a list sorted by position.
func (c *Client) listTasks(ctx context.Context, listID string) ([]*tasks.Task, error) {
	var items []*tasks.Task
	err := withTimeout(ctx, func(ctx context.Context) error {
		return c.svc.Tasks.List(listID).
			MaxResults(PageSize).
			ShowCompleted(true).
			ShowDeleted(false).
			ShowHidden(true).
			Pages(ctx, func(resp *tasks.Tasks) error {
				for _, it := range resp.Items {
					if it.Deleted || it.Parent != "" {
						continue
					}
					items = append(items, it)
				}
				return nil
			})
	})
	if err != nil {
		c.forget(listID, err)
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Position < items[j].Position
	})
	return items, nil
}

func (c *Client) insertTask(ctx context.Context, listID, previous string, t task.Task) (string, error) {
	status := statusNeedsAction
	if t.Completed {
		status = statusCompleted
	}

	var id string
	err := withTimeout(ctx, func(ctx context.Context) error {
		call := c.svc.Tasks.Insert(listID, &tasks.Task{Title: t.Title, Status: status})
		if previous != "" {
			call = call.Previous(previous)
		}
		created, err := call.Context(ctx).Do()
		if err != nil {
			return err
		}
		id = created.Id
		return nil
	})
	return id, err
}

func (c *Client) deleteTask(ctx context.Context, listID, taskID string) error {
	return withTimeout(ctx, func(ctx context.Context) error {
		return c.svc.Tasks.Delete(listID, taskID).Context(ctx).Do()
	})
}

// forget drops a cached list ID that the API no longer knows.
func (c *Client) forget(listID string, err error) {
	if !errors.Is(err, ErrNotFound) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for path, id := range c.lists {
		if id == listID {
			delete(c.lists, path)
		}
	}
}

// withTimeout runs fn under APITimeout and maps its error.
func withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()
	return wrapError(fn(ctx))
}

// wrapError wraps API errors with user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	// Check for timeout
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "context deadline exceeded") {
		return fmt.Errorf("request timed out: %w", context.DeadlineExceeded)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrAuth
		case http.StatusNotFound, http.StatusGone:
			return ErrNotFound
		}
	}
	return err
}
