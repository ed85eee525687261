package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
)

// RPC method names exposed by the Steamworks proxy.
const (
	methodLeaderboardRange   = "GetLeaderboardRange"
	methodLeaderboardPlayers = "GetLeaderboardPlayers"
	methodWorkshopLevels     = "GetWorkshopLevels"
	methodPersonaName        = "GetPersonaName"
)

// Sender delivers one encoded request and returns the encoded response.
// [Transport] is the production implementation.
type Sender interface {
	Send(ctx context.Context, payload []byte) ([]byte, error)
}

type requestEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type responseEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *RemoteError    `json:"error"`
	ID     json.RawMessage `json:"id"`
}

// Client exposes the typed leaderboard and workshop queries of the proxy.
//
// Each call gets the next id of a wrapping 64-bit counter. Client is safe for
// concurrent use when its [Sender] is.
type Client struct {
	sender Sender
	nextID atomic.Uint64
}

// NewClient creates a [Client] that sends its requests through sender.
func NewClient(sender Sender) *Client {
	return &Client{sender: sender}
}

// LeaderboardRange returns the entries ranked start through end (inclusive)
// of the named leaderboard.
func (c *Client) LeaderboardRange(ctx context.Context, leaderboardName string, start, end int32) (LeaderboardResponse, error) {
	var resp LeaderboardResponse
	err := c.call(ctx, methodLeaderboardRange, &resp, leaderboardName, start, end)
	return resp, err
}

// LeaderboardPlayers returns the entries of the given players on the named
// leaderboard.
func (c *Client) LeaderboardPlayers(ctx context.Context, leaderboardName string, steamIDs []uint64) (LeaderboardResponse, error) {
	var resp LeaderboardResponse
	if steamIDs == nil {
		steamIDs = []uint64{}
	}
	err := c.call(ctx, methodLeaderboardPlayers, &resp, leaderboardName, steamIDs)
	return resp, err
}

// WorkshopLevels queries up to maxResults workshop items matching searchText.
func (c *Client) WorkshopLevels(ctx context.Context, maxResults uint32, searchText string) ([]WorkshopItem, error) {
	var items []WorkshopItem
	err := c.call(ctx, methodWorkshopLevels, &items, maxResults, searchText)
	return items, err
}

// PersonaName returns the display name of a Steam user.
func (c *Client) PersonaName(ctx context.Context, steamID uint64) (string, error) {
	var name string
	err := c.call(ctx, methodPersonaName, &name, steamID)
	return name, err
}

// call performs one request/response exchange and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, out any, params ...any) error {
	id := c.nextID.Add(1)

	payload, err := json.Marshal(requestEnvelope{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	body, err := c.sender.Send(ctx, payload)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}

	var resp responseEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: %s: invalid response envelope: %v", ErrProtocol, method, err)
	}
	if !matchesID(resp.ID, id) {
		return fmt.Errorf("%w: %s: response id %s does not match request id %d", ErrProtocol, method, resp.ID, id)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s failed: %w", method, resp.Error)
	}
	if len(resp.Result) == 0 {
		return fmt.Errorf("%w: %s: response has neither result nor error", ErrProtocol, method)
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("%w: %s: invalid result: %v", ErrProtocol, method, err)
	}
	return nil
}

// matchesID compares a response id, encoded as a JSON number or string, with
// the id of the request.
func matchesID(raw json.RawMessage, id uint64) bool {
	raw = bytes.TrimSpace(raw)
	want := strconv.FormatUint(id, 10)
	if string(raw) == want {
		return true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == want
	}
	return false
}
