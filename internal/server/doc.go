// Package server provides the HTTP API for the changelist.
//
// This package exposes the persisted changelist and snapshot as JSON and
// streams newly appended entries to connected clients over Server-Sent Events
// and websockets.
//
// The main components are:
//
//   - [Server]: chi router with JSON, SSE and websocket routes
//
// Request contexts derive from the context passed to [Server.Start], so
// cancelling it ends all streaming handlers before the graceful shutdown.
package server
