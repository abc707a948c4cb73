package rowstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single store call when the caller sets none.
const DefaultTimeout = 10 * time.Second

// maxReplyBytes caps how much of a reply body we are willing to read.
const maxReplyBytes = 32 << 20

// ReplyError is a failure the store reported, either through a non-2xx status
// or a {"success": false} body. Its message is the store's own.
type ReplyError struct {
	StatusCode int
	Message    string
}

func (e *ReplyError) Error() string {
	return e.Message
}

// Client talks to a row store endpoint over HTTP.
//
// Each Do call is independent: no connection state is shared between calls
// beyond the http.Client's pool, so a Client is safe for concurrent use.
type Client struct {
	endpoint string
	key      string
	timeout  time.Duration
	http     *http.Client
}

// NewClient creates a Client that POSTs to endpoint. key, when non-empty, is
// sent as a bearer token. timeout bounds every call; zero means DefaultTimeout.
func NewClient(endpoint, key string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		key:      key,
		timeout:  timeout,
		http:     &http.Client{},
	}
}

// Do sends req and decodes the reply. The call is cancelled when ctx is done
// or the client timeout elapses, whichever comes first.
func (c *Client) Do(ctx context.Context, req Request) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rowstore: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rowstore: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if c.key != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("rowstore: %s %s: %w", req.Operation, req.Table, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, fmt.Errorf("rowstore: reading reply: %w", err)
	}

	var reply Reply
	decodeErr := json.Unmarshal(raw, &reply)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := reply.Error
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("row store returned %s", resp.Status)
		}
		return nil, &ReplyError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("rowstore: decoding reply: %w", decodeErr)
	}
	if !reply.Success {
		msg := reply.Error
		if msg == "" {
			msg = "row store reported failure"
		}
		return nil, &ReplyError{StatusCode: resp.StatusCode, Message: msg}
	}

	return &reply, nil
}
