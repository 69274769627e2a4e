// Package api provides the HTTP REST API for the 2048 game server.
//
// Endpoints:
//
// Session Management:
//   - POST   /api/sessions            create a session ({"config_id": "classic"})
//   - GET    /api/sessions            list sessions (sort=accessed|created|score, order, limit)
//   - GET    /api/sessions/unified    several sessions at once (sessionIds=a,b or configName=...)
//   - GET    /api/sessions/{id}       session details
//   - DELETE /api/sessions/{id}       delete a session
//
// Game Operations:
//   - GET  /api/sessions/{id}/state      current board
//   - POST /api/sessions/{id}/move       {"direction": "left", "reset": false}
//   - POST /api/sessions/{id}/bulk-move  {"moves": ["left", "up"], "reset": false}
//   - POST /api/sessions/{id}/reset      start a new game, best score kept
//   - GET  /api/sessions/{id}/history    page, limit, order=asc|desc
//
// Configuration and scores:
//   - GET  /api/configs         list configurations
//   - GET  /api/configs/{name}  one configuration
//   - POST /api/configs         save a configuration
//   - GET  /api/highscores      config, limit
//
// Operational:
//   - GET /healthz
//   - GET /metrics   request and game counters
//   - GET /ws        live state updates for ?session=<id>
//
// Errors are returned as JSON with the HTTP status repeated in the body:
//
//	{
//	  "error": "session not found: zz99",
//	  "code": 404
//	}
//
// Unknown sessions and configs map to 404, invalid directions and invalid
// configurations to 400, anything else to 500.
package api
