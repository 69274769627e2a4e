// Package service provides the business logic layer for the 2048 server.
//
// GameService sits between the transports (HTTP, WebSocket, MCP, terminal) and
// the engine. It owns:
//   - session creation, lookup and deletion through a SessionManager
//   - configuration listing and loading through a ConfigManager
//   - single and bulk moves, turning engine results into GameEvents
//   - paginated move history
//   - high score tracking through an optional scores.Store
//
// Every changed move that sets the session's best score is submitted to the
// store; a "high_score" event is emitted only when the store accepted it as the
// new record for that configuration.
//
// Usage:
//
//	sessionMgr := session.NewManager(log)
//	configMgr, _ := config.NewManager("configs")
//	store, _ := scores.Open(ctx, "sqlite:data/scores.db")
//	gameService := service.NewGameService(sessionMgr, configMgr, store, log)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		return err
//	}
//	result, err := gameService.Move(ctx, info.ID, "left", false)
//
// Errors for unknown sessions wrap the session manager's not-found error, and
// bad directions wrap engine.ErrInvalidDirection, so callers can map them with
// errors.Is.
package service
