// Package session houses implementations of core.SessionStore, which keeps
// the per-session conversation transcript between runs. The in-memory store
// lives here; durable backends live in sub-packages (session/redis).
package session
