package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cast"

	"github.com/wricardo/mcp-training/game2048/game/engine"
	"github.com/wricardo/mcp-training/game2048/game/scores"
	"github.com/wricardo/mcp-training/game2048/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"2048",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`2048 - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Slide numbered tiles on the grid. Equal tiles that collide merge into their sum and the
sum is added to your score. Reach 2048 and keep going until no move is left.

AVAILABLE TOOLS:
- create_session: Create new game session
- list_sessions: List all active sessions
- get_session: Get session details
- game_state: Get current board, score and possible moves
- move: Single move (up/down/left/right)
- bulk_move: Several moves at once (max 50)
- reset_game: Start a new game in the same session
- move_history: View past moves
- list_configs: List available board configurations
- high_scores: Best recorded score per configuration
- game_instructions: Rules and strategy hints

NOTE: The 'intent' parameter on move/bulk_move is for your own reasoning and is not sent to the server.`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

func directionEnum() []string {
	return []string{"up", "down", "left", "right"}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional config selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Config identifier, see list_configs (optional)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"sort": map[string]interface{}{
					"type": "string",
					"enum": []string{"accessed", "created", "score"},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum sessions to return",
				},
			},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, score and possible moves",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move",
		Description: "Slide all tiles in a direction",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"direction": map[string]interface{}{
					"type":        "string",
					"enum":        directionEnum(),
					"description": "Direction to slide",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of why you chose this move",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before moving",
				},
			},
			Required: []string{"session_id", "direction"},
		},
	}, c.handleMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_move",
		Description: fmt.Sprintf("Execute up to %d moves in sequence, stopping at game over", engine.MaxBulkMoves),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"moves": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
						"enum": directionEnum(),
					},
					"description": "Array of moves",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the plan behind this sequence",
				},
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Reset before moving",
				},
			},
			Required: []string{"session_id", "moves"},
		},
	}, c.handleBulkMove)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Start a new game in the session. The session best score is kept.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": sessionIDProperty()},
			Required:   []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "move_history",
		Description: "Get move history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type": "string",
					"enum": []string{"asc", "desc"},
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available board configurations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "high_scores",
		Description: "Best recorded scores, optionally for one configuration",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"config_id": map[string]interface{}{
					"type":        "string",
					"description": "Config identifier (optional)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum records to return",
				},
			},
		},
	}, c.handleHighScores)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get game rules and strategy hints",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg := cast.ToString(errResp["error"]); msg != "" {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	body := map[string]string{}
	if configID := cast.ToString(args["config_id"]); configID != "" {
		body["config_id"] = configID
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\n\n", info.ID, info.ConfigName)
	if info.GameState != nil {
		result += formatGameState(info.GameState)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query := url.Values{}
	if sortBy := cast.ToString(args["sort"]); sortBy != "" {
		query.Set("sort", sortBy)
	}
	if limit := cast.ToInt(args["limit"]); limit > 0 {
		query.Set("limit", cast.ToString(limit))
	}
	path := "/api/sessions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var response struct {
		Count    int                   `json:"count"`
		Total    int                   `json:"total"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d of %d):\n\n", response.Count, response.Total)
	for _, s := range response.Sessions {
		score := 0
		if s.GameState != nil {
			score = s.GameState.Score
		}
		fmt.Fprintf(&b, "- %s (Config: %s, Score: %d, Created: %s)\n",
			s.ID, s.ConfigName, score, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(request.GetArguments()["session_id"])

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&info)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(request.GetArguments()["session_id"])

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])

	body := map[string]interface{}{
		"direction": cast.ToString(args["direction"]),
		"reset":     cast.ToBool(args["reset"]),
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleBulkMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])

	moves, err := cast.ToStringSliceE(args["moves"])
	if err != nil || len(moves) == 0 {
		return mcp.NewToolResultError("moves must be a non-empty array of directions"), nil
	}

	body := map[string]interface{}{
		"moves": moves,
		"reset": cast.ToBool(args["reset"]),
	}

	var result service.BulkMoveResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/bulk-move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBulkMoveResult(sessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := cast.ToString(request.GetArguments()["session_id"])

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := response.Message + "\n\n"
	if response.State != nil {
		result += formatGameState(response.State)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	sessionID := cast.ToString(args["session_id"])

	query := url.Values{}
	if page := cast.ToInt(args["page"]); page > 0 {
		query.Set("page", cast.ToString(page))
	}
	if limit := cast.ToInt(args["limit"]); limit > 0 {
		query.Set("limit", cast.ToString(limit))
	}
	if order := cast.ToString(args["order"]); order != "" {
		query.Set("order", order)
	}
	path := sessionPath(sessionID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "- %s: %s (%dx%d)", cfg.ConfigID, cfg.Name, cfg.GridSize, cfg.GridSize)
		if cfg.Seeded {
			b.WriteString(" [seeded]")
		}
		if cfg.Description != "" {
			fmt.Fprintf(&b, "\n  %s", cfg.Description)
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleHighScores(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query := url.Values{}
	if configID := cast.ToString(args["config_id"]); configID != "" {
		query.Set("config", configID)
	}
	if limit := cast.ToInt(args["limit"]); limit > 0 {
		query.Set("limit", cast.ToString(limit))
	}
	path := "/api/highscores"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var response struct {
		Count  int             `json:"count"`
		Scores []scores.Record `json:"scores"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if response.Count == 0 {
		return mcp.NewToolResultText("No high scores recorded yet."), nil
	}

	var b strings.Builder
	b.WriteString("High Scores:\n\n")
	for i, r := range response.Scores {
		fmt.Fprintf(&b, "%d. %s: %d (max tile %d, %d moves", i+1, r.ConfigID, r.Score, r.MaxTile, r.Moves)
		if r.SessionID != "" {
			fmt.Fprintf(&b, ", session %s", r.SessionID)
		}
		b.WriteString(")\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `2048 - GAME INSTRUCTIONS

RULES:
- The board is an N x N grid (4x4 by default). Empty cells show as "."
- A move slides every tile as far as it goes in one direction.
- Two equal tiles that collide merge into one tile holding their sum.
- A tile produced by a merge does not merge again in the same move.
- When three equal tiles line up, the pair nearest the wall merges first.
- Every merge adds the new tile value to your score.
- After a move that changed the board, a new tile appears on a random empty cell:
  a 2 nine times out of ten, otherwise a 4.
- A move that changes nothing spawns nothing and costs nothing.

GAME OVER:
- The game ends when the board is full and no two neighbours (horizontal or vertical) are equal.
- After game over every move is ignored until you reset.

SCORING:
- Your session keeps a best score across resets.
- Per-configuration records are listed by high_scores.

STRATEGY HINTS:
- Keep your largest tile in a corner and build the next tiles along one edge.
- Prefer two directions (for example left and down) and use a third only when stuck.
- Avoid the direction that pulls your big tile out of its corner.
- Watch board_risk: LOW means plenty of space, CRITICAL means one or two moves remain.
- Use bulk_move for repetitive patterns; it stops at game over and reports each step.

SESSIONS:
- Each session has a short ID and its own board, score and history.
- Several sessions can run at once, each on its own configuration.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatSessionInfo(info *service.SessionInfo) string {
	result := fmt.Sprintf("Session: %s\nConfig: %s\nCreated: %s\nLast accessed: %s\n\n",
		info.ID, info.ConfigName,
		info.CreatedAt.Format(time.RFC3339), info.LastAccessedAt.Format(time.RFC3339))
	if info.GameState != nil {
		result += formatGameState(info.GameState)
	}
	return result
}

// formatBoard renders the grid with right-aligned columns
func formatBoard(grid engine.Grid) string {
	width := 1
	for _, row := range grid {
		for _, v := range row {
			if w := len(fmt.Sprint(v)); v != 0 && w > width {
				width = w
			}
		}
	}

	var b strings.Builder
	for _, row := range grid {
		cells := make([]string, len(row))
		for j, v := range row {
			text := "."
			if v != 0 {
				text = fmt.Sprint(v)
			}
			cells[j] = fmt.Sprintf("%*s", width, text)
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteString("\n")
	}
	return b.String()
}

func formatGameState(state *engine.GameState) string {
	var b strings.Builder
	b.WriteString(formatBoard(state.Grid))
	fmt.Fprintf(&b, "\nScore: %d  Best: %d  Max tile: %d\n", state.Score, state.BestScore, state.MaxTile)
	fmt.Fprintf(&b, "Moves this game: %d  Total moves: %d\n", state.CurrentMovesCount, state.TotalMoves)
	if tiles := formatTiles(state.Grid); tiles != "" {
		fmt.Fprintf(&b, "Tiles: %s\n", tiles)
	}
	if state.BoardRisk != "" {
		fmt.Fprintf(&b, "Board risk: %s\n", state.BoardRisk)
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", state.Message)
	}
	if state.GameOver {
		b.WriteString("\nGAME OVER - use reset_game to play again\n")
	}
	return b.String()
}

// formatTiles lists value x count pairs, largest value first
func formatTiles(grid engine.Grid) string {
	counts := engine.TileCounts(grid)
	values := make([]int, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values)))

	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%dx%d", v, counts[v])
	}
	return strings.Join(parts, " ")
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		fmt.Fprintf(&b, "Moved %s: +%d", result.Direction, result.ScoreGained)
		if len(result.Merged) > 0 {
			fmt.Fprintf(&b, " (%d merges)", len(result.Merged))
		}
		if result.Spawned != nil {
			fmt.Fprintf(&b, ", new %d at row %d col %d", result.SpawnedValue, result.Spawned.Row, result.Spawned.Col)
		}
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "Move %s changed nothing\n", result.Direction)
	}

	for _, ev := range result.Events {
		if ev.Type == service.EventHighScore {
			fmt.Fprintf(&b, "NEW HIGH SCORE: %s\n", ev.Message)
		}
	}

	if result.GameState != nil {
		b.WriteString("\n")
		b.WriteString(formatGameState(result.GameState))
	}
	if len(result.PossibleMoves) > 0 {
		fmt.Fprintf(&b, "Possible moves: %s\n", strings.Join(result.PossibleMoves, ", "))
	}
	return b.String()
}

func formatBulkMoveResult(sessionID string, result *service.BulkMoveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s: executed %d of %d moves\n", sessionID, result.MovesExecuted, result.RequestedMoves)
	if result.Truncated {
		fmt.Fprintf(&b, "Request truncated to %d moves\n", result.Limit)
	}
	if result.StopReasonCode != "" {
		fmt.Fprintf(&b, "Stopped on move %d: %s (%s)\n", result.StoppedOnMove, result.StoppedReason, result.StopReasonCode)
	}
	fmt.Fprintf(&b, "Score: %d -> %d (%+d)\n", result.StartScore, result.EndScore, result.ScoreDelta)

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, step := range result.Steps {
			b.WriteString(formatStepLine(step))
		}
	}

	if result.GameState != nil {
		b.WriteString("\n")
		b.WriteString(formatGameState(result.GameState))
	}
	if len(result.PossibleMoves) > 0 {
		fmt.Fprintf(&b, "Possible moves: %s\n", strings.Join(result.PossibleMoves, ", "))
	}
	return b.String()
}

func formatStepLine(step service.StepInfo) string {
	if !step.Changed {
		return fmt.Sprintf("%2d. %-5s no change\n", step.Idx, step.Dir)
	}
	return fmt.Sprintf("%2d. %-5s +%d -> %d (max %d)\n", step.Idx, step.Dir, step.ScoreGained, step.ScoreAfter, step.MaxTileAfter)
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (page %d of %d, %d moves total):\n\n", history.Page, history.TotalPages, history.TotalMoves)
	for _, m := range history.Moves {
		changed := "changed"
		if !m.Changed {
			changed = "no change"
		}
		fmt.Fprintf(&b, "#%d %s: %s, +%d, score %d\n", m.MoveNumber, m.Action, changed, m.ScoreGained, m.Score)
	}
	if history.HasNext {
		b.WriteString("\nMore moves on the next page.\n")
	}
	return b.String()
}
