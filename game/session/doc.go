// Package session provides session management for the 2048 game server.
//
// Manager keeps one GameEngine per session in memory, keyed by a short
// case-insensitive ID (4 hex characters when generated). With a
// SessionPersistence attached, sessions are written through on creation and
// lazily loaded back on lookup, so a restarted server picks up where it left off.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", configManager)
//	manager := session.NewManagerWithPersistence(persistence, logger)
//
//	sess, err := manager.Create("", "classic", config)
//	sess, err = manager.Get(sess.ID)
//
// Expired sessions are dropped from memory by CleanupExpiredSessions; their
// files stay on disk.
package session
