// Package control accepts remote-control commands over MQTT.
//
// A stream deck, a Home Assistant automation or any other MQTT client can
// drive a session by publishing to tavernlight/command/<action>:
//
//	tavernlight/command/scene/start      {"id": "tavern"}
//	tavernlight/command/scene/stop       {}
//	tavernlight/command/trigger/execute  {"id": "lightning", "request_id": "sd-42"}
//	tavernlight/command/stop_all         {}
//
// Every command is answered on tavernlight/ack/<action> with an Ack that
// echoes request_id, so callers can correlate replies.
//
// # Usage
//
//	h := control.NewHandler(mqttClient, manager)
//	h.SetLogger(log)
//	if err := h.Start(ctx); err != nil {
//	    return err
//	}
//	defer h.Stop()
package control
