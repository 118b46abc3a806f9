// Package core is the orchestration layer.  It wires the transport,
// the secure-session backends, the connection layer and the line
// capabilities into the two things a goahead process can do: serve
// line-oriented sessions (listen mode) or dial one (connect mode).
//
// Architecture layers (bottom → top):
//
//	transport, socket  →  secure  →  conn  →  capability  →  core  →  cmd
package core

import "context"

// Mode is a complete operational mode.  Each mode owns its lifecycle
// from the first listen or dial to teardown.
type Mode interface {
	Run(ctx context.Context) error
}
