package metrics

import "time"

// Stats is a snapshot of the repo-level gauges Collector polls. The repo
// layer supplies these through a closure so this package doesn't need to
// import pkg/repo.
type Stats struct {
	EmapCacheSize     int
	ContentMapEntries int
}

// StatsFunc produces a fresh Stats snapshot on demand.
type StatsFunc func() Stats

// Collector periodically polls a repo's gauges and publishes them to
// Prometheus, the way a long-running `cryptofs serve` process would.
type Collector struct {
	statsFn StatsFunc
	stopCh  chan struct{}
}

// NewCollector builds a Collector that calls statsFn on every tick.
func NewCollector(statsFn StatsFunc) *Collector {
	return &Collector{
		statsFn: statsFn,
		stopCh:  make(chan struct{}),
	}
}

// Start begins polling on a 15s interval, collecting immediately first.
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

// Stop halts polling.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	s := c.statsFn()
	EmapCacheSize.Set(float64(s.EmapCacheSize))
	ContentMapEntries.Set(float64(s.ContentMapEntries))
}
