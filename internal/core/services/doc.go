// Package services implements the driving port interfaces: the
// knowledge engine, the realtime session controller, and the knowledge
// directory watcher. Services hold the core behavior and orchestrate
// calls to driven ports (adapters).
package services
