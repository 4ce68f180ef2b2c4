package mq

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Message defaults and limits, in seconds.
const (
	DefaultTimeout   = 60     // how long a reservation hides the message
	DefaultDelay     = 0      // visibility delay after posting
	DefaultExpiresIn = 604800 // one week
	MaxExpiresIn     = 2592000
)

// Message is an outbound payload. It has no identity until the server assigns
// one on post.
type Message struct {
	Body      string `json:"body"`
	Timeout   int    `json:"timeout"`
	Delay     int    `json:"delay"`
	ExpiresIn int    `json:"expires_in"`
}

// NewMessage wraps a bare body in a Message with default timeout, delay and
// expiry.
func NewMessage(body string) Message {
	return Message{
		Body:      body,
		Timeout:   DefaultTimeout,
		Delay:     DefaultDelay,
		ExpiresIn: DefaultExpiresIn,
	}
}

// StoredMessage is a message on the server seen without a lease (peek or
// get-by-id). It cannot be touched, released, or reservation-deleted.
type StoredMessage struct {
	ID            string `json:"id"`
	Body          string `json:"body"`
	ReservedCount int    `json:"reserved_count,omitempty"`
}

// ReservedMessage is a leased message. ReservationID is the capability token
// the server demands for touch, release, and delete while the lease is
// active; it is only ever produced by the server and must not be fabricated
// or reused across reservations.
type ReservedMessage struct {
	StoredMessage
	ReservationID string `json:"reservation_id"`
}

// PostMessages puts messages on the queue and returns the assigned ids in
// server response order. Zero-valued Timeout and ExpiresIn fields are filled
// with defaults first.
//
// A 503 during post is retried like any other call, so a post the server
// partially applied can be duplicated; de-duplicate downstream if that
// matters.
func (c *Client) PostMessages(ctx context.Context, queue string, msgs ...Message) ([]string, error) {
	if len(msgs) == 0 {
		return nil, fmt.Errorf("post to %q: no messages given", queue)
	}
	normalized := make([]Message, len(msgs))
	for i, m := range msgs {
		if m.Timeout == 0 {
			m.Timeout = DefaultTimeout
		}
		if m.ExpiresIn == 0 {
			m.ExpiresIn = DefaultExpiresIn
		}
		if m.ExpiresIn > MaxExpiresIn {
			return nil, fmt.Errorf("post to %q: expires_in %d exceeds maximum %d", queue, m.ExpiresIn, MaxExpiresIn)
		}
		normalized[i] = m
	}

	body := struct {
		Messages []Message `json:"messages"`
	}{Messages: normalized}
	var out struct {
		IDs []string `json:"ids"`
	}
	if err := c.request(ctx, http.MethodPost, "/queues/"+url.PathEscape(queue)+"/messages", body, &out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

// PostMessage posts a single bare body with default options and returns its
// id.
func (c *Client) PostMessage(ctx context.Context, queue, body string) (string, error) {
	ids, err := c.PostMessages(ctx, queue, NewMessage(body))
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("post to %q: server returned no ids", queue)
	}
	return ids[0], nil
}

type reserveRequest struct {
	N       int `json:"n"`
	Timeout int `json:"timeout,omitempty"`
	Wait    int `json:"wait,omitempty"`
}

// ReserveOption tunes a reservation request.
type ReserveOption func(*reserveRequest)

// WithReservationTimeout overrides the messages' own timeout for this lease.
func WithReservationTimeout(seconds int) ReserveOption {
	return func(r *reserveRequest) { r.Timeout = seconds }
}

// WithWait long-polls up to the given seconds when the queue is empty.
func WithWait(seconds int) ReserveOption {
	return func(r *reserveRequest) { r.Wait = seconds }
}

// ReserveMessages leases up to n messages. Each returned message carries a
// fresh reservation id; the server may return fewer than n, or none.
func (c *Client) ReserveMessages(ctx context.Context, queue string, n int, opts ...ReserveOption) ([]ReservedMessage, error) {
	if n < 1 {
		return nil, fmt.Errorf("reserve from %q: n must be positive, got %d", queue, n)
	}
	req := reserveRequest{N: n}
	for _, opt := range opts {
		opt(&req)
	}
	var out struct {
		Messages []ReservedMessage `json:"messages"`
	}
	if err := c.request(ctx, http.MethodPost, "/queues/"+url.PathEscape(queue)+"/reservations", req, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// ReserveMessage leases a single message, or returns nil when the queue is
// empty.
func (c *Client) ReserveMessage(ctx context.Context, queue string, opts ...ReserveOption) (*ReservedMessage, error) {
	msgs, err := c.ReserveMessages(ctx, queue, 1, opts...)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

// GetMessages is ReserveMessages under the service's historical name: getting
// a message reserves it. Use Peek for a non-leasing read.
func (c *Client) GetMessages(ctx context.Context, queue string, n int, opts ...ReserveOption) ([]ReservedMessage, error) {
	return c.ReserveMessages(ctx, queue, n, opts...)
}

// GetMessage reserves a single message; see GetMessages.
func (c *Client) GetMessage(ctx context.Context, queue string, opts ...ReserveOption) (*ReservedMessage, error) {
	return c.ReserveMessage(ctx, queue, opts...)
}

// GetMessageByID fetches one message by id without creating or requiring a
// reservation.
func (c *Client) GetMessageByID(ctx context.Context, queue, id string) (*StoredMessage, error) {
	var out struct {
		Message StoredMessage `json:"message"`
	}
	if err := c.request(ctx, http.MethodGet, "/queues/"+url.PathEscape(queue)+"/messages/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// PeekMessages reads up to n messages without leasing them; they stay visible
// to reservers. Ordering is server-defined.
func (c *Client) PeekMessages(ctx context.Context, queue string, n int) ([]StoredMessage, error) {
	if n < 1 {
		return nil, fmt.Errorf("peek at %q: n must be positive, got %d", queue, n)
	}
	var out struct {
		Messages []StoredMessage `json:"messages"`
	}
	suffix := "/queues/" + url.PathEscape(queue) + "/messages?n=" + strconv.Itoa(n)
	if err := c.request(ctx, http.MethodGet, suffix, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// PeekMessage reads the next visible message without leasing it, or nil when
// the queue is empty.
func (c *Client) PeekMessage(ctx context.Context, queue string) (*StoredMessage, error) {
	msgs, err := c.PeekMessages(ctx, queue, 1)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return &msgs[0], nil
}

// DeleteMessage removes an unreserved message by id. For a message that is
// currently reserved use DeleteReserved; the server rejects a reservation-less
// delete of a leased message.
func (c *Client) DeleteMessage(ctx context.Context, queue, id string) error {
	return c.request(ctx, http.MethodDelete, "/queues/"+url.PathEscape(queue)+"/messages/"+url.PathEscape(id), struct{}{}, nil)
}

// DeleteReserved removes a leased message, presenting its reservation id.
func (c *Client) DeleteReserved(ctx context.Context, queue string, msg *ReservedMessage) error {
	if msg == nil || msg.ReservationID == "" {
		return ErrNoReservation
	}
	body := struct {
		ReservationID string `json:"reservation_id"`
	}{ReservationID: msg.ReservationID}
	return c.request(ctx, http.MethodDelete, "/queues/"+url.PathEscape(queue)+"/messages/"+url.PathEscape(msg.ID), body, nil)
}

// DeleteMessages removes a batch of unreserved messages by id.
func (c *Client) DeleteMessages(ctx context.Context, queue string, ids []string) error {
	type idRef struct {
		ID string `json:"id"`
	}
	refs := make([]idRef, len(ids))
	for i, id := range ids {
		refs[i] = idRef{ID: id}
	}
	body := struct {
		IDs []idRef `json:"ids"`
	}{IDs: refs}
	return c.request(ctx, http.MethodDelete, "/queues/"+url.PathEscape(queue)+"/messages", body, nil)
}

// TouchMessage extends the lease back to the message's full timeout. The
// server rotates the reservation id on touch; the new id is written back into
// msg so subsequent calls keep working. Fails once the lease has expired.
func (c *Client) TouchMessage(ctx context.Context, queue string, msg *ReservedMessage) error {
	if msg == nil || msg.ReservationID == "" {
		return ErrNoReservation
	}
	body := struct {
		ReservationID string `json:"reservation_id"`
	}{ReservationID: msg.ReservationID}
	var out struct {
		ReservationID string `json:"reservation_id"`
	}
	suffix := "/queues/" + url.PathEscape(queue) + "/messages/" + url.PathEscape(msg.ID) + "/touch"
	if err := c.request(ctx, http.MethodPost, suffix, body, &out); err != nil {
		return err
	}
	if out.ReservationID != "" {
		msg.ReservationID = out.ReservationID
	}
	return nil
}

type releaseRequest struct {
	ReservationID string `json:"reservation_id"`
	Delay         *int   `json:"delay,omitempty"`
}

// ReleaseOption tunes a release request.
type ReleaseOption func(*releaseRequest)

// WithDelay holds the released message invisible for the given seconds before
// it can be reserved again.
func WithDelay(seconds int) ReleaseOption {
	return func(r *releaseRequest) { r.Delay = &seconds }
}

// ReleaseMessage puts a leased message back on the queue, immediately visible
// unless a delay is given. The reservation id is consumed.
func (c *Client) ReleaseMessage(ctx context.Context, queue string, msg *ReservedMessage, opts ...ReleaseOption) error {
	if msg == nil || msg.ReservationID == "" {
		return ErrNoReservation
	}
	req := releaseRequest{ReservationID: msg.ReservationID}
	for _, opt := range opts {
		opt(&req)
	}
	suffix := "/queues/" + url.PathEscape(queue) + "/messages/" + url.PathEscape(msg.ID) + "/release"
	return c.request(ctx, http.MethodPost, suffix, req, nil)
}
