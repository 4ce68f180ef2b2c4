package mq

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// QueueInfo is the server's snapshot of a queue. Attributes are read at call
// time and never cached by the client.
type QueueInfo struct {
	ProjectID     string `json:"project_id"`
	Name          string `json:"name"`
	Size          int    `json:"size"`
	TotalMessages int    `json:"total_messages"`
}

// ListOption narrows or pages a ListQueues call.
type ListOption func(url.Values)

// WithQueuePrefix lists only queues whose name starts with prefix.
func WithQueuePrefix(prefix string) ListOption {
	return func(v url.Values) { v.Set("prefix", prefix) }
}

// WithPerPage caps the number of queues returned per call.
func WithPerPage(n int) ListOption {
	return func(v url.Values) { v.Set("per_page", strconv.Itoa(n)) }
}

// WithPrevious resumes listing after the named queue.
func WithPrevious(name string) ListOption {
	return func(v url.Values) { v.Set("previous", name) }
}

// ListQueues returns the names of the project's queues.
func (c *Client) ListQueues(ctx context.Context, opts ...ListOption) ([]string, error) {
	suffix := "/queues"
	params := url.Values{}
	for _, opt := range opts {
		opt(params)
	}
	if len(params) > 0 {
		suffix += "?" + params.Encode()
	}

	var out struct {
		Queues []struct {
			Name string `json:"name"`
		} `json:"queues"`
	}
	if err := c.request(ctx, http.MethodGet, suffix, nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.Queues))
	for _, q := range out.Queues {
		names = append(names, q.Name)
	}
	return names, nil
}

// QueueInfo fetches the current attributes of a queue.
func (c *Client) QueueInfo(ctx context.Context, queue string) (*QueueInfo, error) {
	var out struct {
		Queue QueueInfo `json:"queue"`
	}
	if err := c.request(ctx, http.MethodGet, "/queues/"+url.PathEscape(queue), nil, &out); err != nil {
		return nil, err
	}
	return &out.Queue, nil
}

// QueueSize returns the number of messages currently on the queue.
func (c *Client) QueueSize(ctx context.Context, queue string) (int, error) {
	info, err := c.QueueInfo(ctx, queue)
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

// ClearQueue removes every message from the queue. Reserved messages are
// cleared too; their reservation ids become stale.
func (c *Client) ClearQueue(ctx context.Context, queue string) error {
	return c.request(ctx, http.MethodDelete, "/queues/"+url.PathEscape(queue)+"/messages", struct{}{}, nil)
}

// DeleteQueue removes the queue itself along with its messages.
func (c *Client) DeleteQueue(ctx context.Context, queue string) error {
	return c.request(ctx, http.MethodDelete, "/queues/"+url.PathEscape(queue), struct{}{}, nil)
}
