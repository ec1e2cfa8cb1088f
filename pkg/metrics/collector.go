package metrics

import "time"

// Poller is the subset of the subscription manager's API the collector
// needs. Declared here rather than importing pkg/manager directly so
// pkg/metrics stays a leaf package with no dependency on the rest of
// the client.
type Poller interface {
	ActiveHandleCount() int
	AggregateEntityCount() int
}

// Collector periodically samples gauge-shaped state from a running
// subscription manager.
type Collector struct {
	poller Poller
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector polling src every 15s.
func NewCollector(src Poller) *Collector {
	return &Collector{poller: src, stopCh: make(chan struct{})}
}

// Start begins collecting metrics in a background goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ActiveHandlesTotal.Set(float64(c.poller.ActiveHandleCount()))
	AggregateEntitiesTotal.Set(float64(c.poller.AggregateEntityCount()))
}
