// Package metrics exposes Prometheus metrics for Tavernlight Core.
//
// Event counters (scenes, triggers, stops, volume changes) are fed by the
// session event fan-out. Scrape-time gauges such as running trigger
// sequences and connected WebSocket clients are registered by their owners
// with RegisterGauge, and the lighting adapter's request counters with
// RegisterLighting.
//
// # Usage
//
//	m := metrics.New()
//	m.RegisterLighting(adapter.Stats)
//	m.RegisterGauge("running_triggers", "Trigger sequences in flight",
//	    func() float64 { return float64(manager.RunningTriggers()) })
//	router.Handle("/metrics", m.Handler())
package metrics
