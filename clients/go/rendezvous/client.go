// Package rendezvous provides a client for the rendezvous signaling server
// and a polling session on top of it.
package rendezvous

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultURL is used when no server URL is given.
const DefaultURL = "http://localhost:8080"

// Client is a rendezvous API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new client for the server at baseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a failed request as reported by the server.
type APIError struct {
	Status int
	Reason string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rendezvous error %d: %s", e.Status, e.Reason)
}

// doRequest performs an HTTP request and returns the status and body of any
// non-error response.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Reason string `json:"reason"`
		}
		json.Unmarshal(respBody, &errResp)
		if errResp.Reason == "" {
			errResp.Reason = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, nil, &APIError{Status: resp.StatusCode, Reason: errResp.Reason}
	}

	return resp.StatusCode, respBody, nil
}

// JoinResult describes the peer created by a join.
type JoinResult struct {
	RoomID      string `json:"room_id"`
	PeerID      string `json:"peer_id"`
	IsInitiator bool   `json:"is_initiator"`
}

// Join adds a new peer to roomID. peerID may be empty to let the server
// pick one.
func (c *Client) Join(ctx context.Context, roomID, peerID string) (*JoinResult, error) {
	path := "/join/" + url.PathEscape(roomID)
	if peerID != "" {
		path += "?peer_id=" + url.QueryEscape(peerID)
	}

	_, respBody, err := c.doRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Result string     `json:"result"`
		Params JoinResult `json:"params"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp.Params, nil
}

// Send relays payload from peerID to the other peers of roomID.
func (c *Client) Send(ctx context.Context, roomID, peerID, payload string) error {
	_, _, err := c.doRequest(ctx, http.MethodPost, messagePath(roomID, peerID), []byte(payload))
	return err
}

// Receive fetches the next message for peerID. ok is false when there is
// nothing to read yet.
func (c *Client) Receive(ctx context.Context, roomID, peerID string) (string, bool, error) {
	status, respBody, err := c.doRequest(ctx, http.MethodGet, messagePath(roomID, peerID), nil)
	if err != nil {
		return "", false, err
	}
	if status == http.StatusNoContent {
		return "", false, nil
	}
	return string(respBody), true, nil
}

func messagePath(roomID, peerID string) string {
	return "/message/" + url.PathEscape(roomID) + "/" + url.PathEscape(peerID)
}

// PeerInfo summarizes one peer of an inspected room.
type PeerInfo struct {
	ID          string `json:"id"`
	IsInitiator bool   `json:"is_initiator"`
	Unread      int    `json:"unread"`
	Read        int    `json:"read"`
}

// MessageInfo summarizes one archived message of an inspected room.
type MessageInfo struct {
	ID   string `json:"id"`
	From string `json:"from"`
	Type string `json:"type"`
}

// RoomInfo is a snapshot of a room.
type RoomInfo struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Peers     []PeerInfo    `json:"peers"`
	Messages  []MessageInfo `json:"messages"`
}

// Inspect returns a snapshot of roomID.
func (c *Client) Inspect(ctx context.Context, roomID string) (*RoomInfo, error) {
	_, respBody, err := c.doRequest(ctx, http.MethodGet, "/room/"+url.PathEscape(roomID), nil)
	if err != nil {
		return nil, err
	}

	var resp RoomInfo
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	_, respBody, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
