/*
Package metrics defines and registers wavecast-go's Prometheus metrics:
counters for handshake/receive attempts, reconnects and give-ups,
heartbeats, publish requests, and dispatcher stream drops, plus gauges
for the subscription manager's active handle and aggregate entity
counts.

Applications that already run their own HTTP server can mount
Handler() to expose these alongside their own metrics; wavecast-go
itself never starts a server. Collector polls a Poller (satisfied by
*manager.Manager) on a 15s tick to keep the gauges current between
handle registrations.
*/
package metrics
