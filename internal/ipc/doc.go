// Package ipc carries the control protocol between the soundcheck CLI and the
// daemon: JSON-RPC 2.0 over a Unix socket.
//
// The server side wraps a running daemon and dispatches queue, track, set,
// profile, and log operations; the client side gives each method a context
// timeout so commands fail quickly when no daemon is listening. Request and
// response payloads reuse the api package DTOs, keeping the wire format
// aligned with what the CLI renders.
package ipc
