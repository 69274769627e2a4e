// Package websocket pushes live board updates to browsers and other watchers.
//
// A single Hub goroutine owns the map of session ID to connected clients.
// Registration, removal, broadcasts and client counts all travel through
// channels, so request handlers never touch the map directly.
//
// Clients connect with ?sessionId=abc1 and receive JSON frames:
//
//	{"session_id":"abc1","event":"state_update","game_state":{...},"last_move":{...}}
//
// Incoming frames are read only to keep ping/pong and close handling alive.
//
// Usage:
//
//	hub := websocket.NewHub(log)
//	go hub.Run(ctx)
//	hub.BroadcastToSession(id, state)
package websocket
