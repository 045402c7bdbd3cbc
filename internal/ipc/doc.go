// Package ipc exposes daemon control over JSON-RPC on a Unix domain
// socket. The server side wraps the daemon composition; the client
// side is what the CLI dials. All request/response payloads are plain
// structs so the wire format stays stable for external tooling.
package ipc
