// Package infra contains technical adapters such as the MQTT result
// publisher, metric sinks and run stores. These packages should depend
// only on the interfaces defined in the core packages.
package infra
