// Package influxdb writes session telemetry to InfluxDB v2.
//
// Every orchestrator event becomes a point in the session_events
// measurement, which lets a dashboard answer questions such as "how long
// did the forest scene run tonight" or "how often was lightning fired".
// Volume changes and lighting request counters are written alongside.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSessionEvent(influxdb.SessionEvent{Type: "scene.started", SceneID: "tavern"})
//
// # Thread Safety
//
// All methods are safe for concurrent use. Writes are non-blocking and
// batched (batch_size, flush_interval); failures arrive asynchronously on
// the SetOnError callback.
package influxdb
