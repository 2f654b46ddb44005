// Package mcp provides an MCP (Model Context Protocol) server adapter
// for Cuby. It lets AI assistants query the local knowledge store.
package mcp

import "errors"

// ErrMissingKnowledgeService is returned when the knowledge service is not provided.
var ErrMissingKnowledgeService = errors.New("mcp: knowledge service is required")
