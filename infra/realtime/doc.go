// Package realtime hosts the built-in push transports: a WebSocket room hub
// and a Server-Sent Events stream of public marketplace events.
package realtime
