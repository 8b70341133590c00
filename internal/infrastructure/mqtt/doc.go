// Package mqtt provides the MQTT event bus connection for Tavernlight Core.
//
// The orchestrator's session events are mirrored to the broker so that
// other devices at the table (a DM tablet, a stream overlay, a smart
// speaker automation) can follow and drive the session:
//
//	                      ┌──────────────────────────┐
//	Orchestrator ──► events fan-out ──► tavernlight/event/<type>
//	                      │            tavernlight/state/scene  (retained)
//	                      └──────────────────────────┘
//	tavernlight/command/# ──► control subscriber ──► Orchestrator
//
// The client publishes a retained status on tavernlight/system/status and
// registers an LWT on the same topic, so a crash reads as
// {"status":"offline","reason":"unexpected_disconnect"}.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.Event("scene.started"), ev, false)
package mqtt
