package server

import (
	"github.com/tagscope/tagscope/internal/app"
	"github.com/tagscope/tagscope/internal/interfaces"
)

// Config describes how to construct and bind the API server.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":8080".
	ListenAddr string

	// Logger is optional; a stdout JSON logger is used when nil.
	Logger interfaces.Logger

	// AppConfig is optional; defaults are used when nil.
	AppConfig *app.Config

	// Orchestrator is optional; when set the server uses it instead of
	// constructing its own (used by tests to inject fakes).
	Orchestrator *app.Orchestrator
}
