// Package mcp exposes the 2048 game to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call is translated into a request
// against the REST API and the JSON answer is rendered as plain text, with
// the board drawn as right-aligned numbers and "." for empty cells.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state, move, bulk_move, reset_game, move_history
//   - list_configs, high_scores, game_instructions
//
// Arguments are coerced loosely (a "true" string is a bool, a float is an
// int) since agents are not always careful with JSON types.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
