// Package events fans orchestrator session events out to the service's
// outer surfaces.
//
//	Orchestrator ──Publish──► Bus (bounded queue) ──► WebSocket hub
//	                                              ──► MQTTSink    tavernlight/event/<type>
//	                                              ──► InfluxSink  session_events
//	                                              ──► MetricsSink Prometheus counters
//
// Publish never blocks. A full queue drops the event and counts it, so a
// stalled broker cannot hold up a trigger sequence.
//
// # Usage
//
//	bus := events.NewBus(events.Options{OnDrop: m.EventDropped})
//	bus.Add("mqtt", events.NewMQTTSink(mqttClient, log))
//	bus.Add("metrics", events.NewMetricsSink(m))
//	go bus.Run(ctx)
//
//	manager := orchestrator.NewManager(cat, mixer, lights, orchestrator.Options{Publisher: bus})
package events
