package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/service"
)

// Client plays one session at a time against a running game server
type Client struct {
	baseURL   string
	sessionID string
	state     *engine.GameState
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID is the session currently being played
func (c *Client) SessionID() string { return c.sessionID }

// CreateSession starts a new session and makes it current
func (c *Client) CreateSession(ctx context.Context, configID string) (*engine.GameState, error) {
	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", map[string]string{"config_id": configID}, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if info.GameState == nil {
		return nil, fmt.Errorf("create session: response has no game state")
	}

	c.sessionID = info.ID
	c.state = info.GameState
	return c.state, nil
}

// GetState fetches the current session state
func (c *Client) GetState(ctx context.Context) (*engine.GameState, error) {
	var state engine.GameState
	if err := c.do(ctx, http.MethodGet, c.sessionPath("state"), nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	c.state = &state
	return c.state, nil
}

func (c *Client) State() *engine.GameState { return c.state }

func (c *Client) Move(ctx context.Context, dir engine.Direction) (*engine.GameState, error) {
	var result service.MoveResult
	req := map[string]string{"direction": string(dir)}
	if err := c.do(ctx, http.MethodPost, c.sessionPath("move"), req, &result); err != nil {
		return nil, fmt.Errorf("move: %w", err)
	}
	if result.GameState == nil {
		return nil, fmt.Errorf("move: response has no game state")
	}
	c.state = result.GameState
	return c.state, nil
}

// BulkMove sends several moves in one request. The server stops early on game over.
func (c *Client) BulkMove(ctx context.Context, dirs []engine.Direction) (*service.BulkMoveResult, error) {
	moves := make([]string, len(dirs))
	for i, d := range dirs {
		moves[i] = string(d)
	}

	var result service.BulkMoveResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("bulk-move"), map[string]interface{}{"moves": moves}, &result); err != nil {
		return nil, fmt.Errorf("bulk move: %w", err)
	}
	if result.GameState != nil {
		c.state = result.GameState
	}
	return &result, nil
}

type resetResponse struct {
	Message string            `json:"message"`
	State   *engine.GameState `json:"state"`
}

func (c *Client) Reset(ctx context.Context) (*engine.GameState, error) {
	var resp resetResponse
	if err := c.do(ctx, http.MethodPost, c.sessionPath("reset"), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	if resp.State == nil {
		return nil, fmt.Errorf("reset: response has no game state")
	}
	c.state = resp.State
	return c.state, nil
}

func (c *Client) sessionPath(action string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + "/" + action
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp map[string]interface{}
		if json.Unmarshal(data, &errResp) == nil {
			if msg := cast.ToString(errResp["error"]); msg != "" {
				return fmt.Errorf("%s: %s", resp.Status, msg)
			}
		}
		return fmt.Errorf("%s", resp.Status)
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

// playRemote plays games through the API, one new session per game
func playRemote(ctx context.Context, client *Client, configID string, strategy Strategy, games, maxMoves int) (Summary, error) {
	results := make([]GameResult, 0, games)
	for i := 0; i < games; i++ {
		if _, err := client.CreateSession(ctx, configID); err != nil {
			return Summary{}, err
		}
		result, err := playGame(ctx, client, strategy, maxMoves)
		if err != nil {
			return Summary{}, fmt.Errorf("session %s: %w", client.SessionID(), err)
		}
		results = append(results, result)
	}
	return summarize(strategy.Name(), results), nil
}
