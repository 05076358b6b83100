// Package infra holds the adapters behind the core interfaces: the memory
// repository, push transports, broker sinks, metrics exporters and the
// Sentry monitor. Subpackages depend on core, never the other way round.
package infra
