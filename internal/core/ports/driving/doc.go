// Package driving defines the interfaces through which the outside world
// drives the core (primary ports). The CLI and MCP adapters depend on
// these; core services implement them.
package driving
