// Package session runs a pipeline behind a single event loop so that
// concurrent clients, such as socket.io connections, can drive it.
//
// The pipeline itself is not safe for concurrent use. A Session owns it on
// the goroutine that calls Run: mutations submitted through Do or Apply are
// queued and executed there, async verb completions are applied there, and
// snapshot listeners are called there once per batch of change
// notifications.
package session
