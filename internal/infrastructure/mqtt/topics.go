package mqtt

import "strings"

// Topic roots. Every topic the service touches lives under TopicPrefix.
const (
	TopicPrefix        = "tavernlight"
	TopicPrefixEvent   = TopicPrefix + "/event"
	TopicPrefixState   = TopicPrefix + "/state"
	TopicPrefixCommand = TopicPrefix + "/command"
	TopicPrefixSystem  = TopicPrefix + "/system"
	TopicPrefixAck     = TopicPrefix + "/ack"
)

// Command actions accepted under TopicPrefixCommand.
const (
	CommandSceneStart     = "scene/start"
	CommandSceneStop      = "scene/stop"
	CommandTriggerExecute = "trigger/execute"
	CommandStopAll        = "stop_all"
)

// Topics provides builders for tavernlight MQTT topics.
//
//	topic := mqtt.Topics{}.Event("scene.started")
//	// Returns: "tavernlight/event/scene.started"
type Topics struct{}

// SystemStatus is the retained online/offline topic, also used for the LWT.
//
// Example: tavernlight/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// Event returns the topic for one session event type.
//
// Example: tavernlight/event/trigger.completed
func (Topics) Event(eventType string) string {
	return TopicPrefixEvent + "/" + eventType
}

// AllEvents matches every session event.
func (Topics) AllEvents() string {
	return TopicPrefixEvent + "/#"
}

// SceneState is the retained topic carrying the active scene.
//
// Example: tavernlight/state/scene
func (Topics) SceneState() string {
	return TopicPrefixState + "/scene"
}

// Command returns the topic for a remote-control action.
//
// Example: tavernlight/command/scene/start
func (Topics) Command(action string) string {
	return TopicPrefixCommand + "/" + action
}

// AllCommands matches every remote-control topic.
func (Topics) AllCommands() string {
	return TopicPrefixCommand + "/#"
}

// CommandAck returns the topic acknowledging a remote-control action.
// Acks live outside TopicPrefixCommand so a command subscriber never
// receives its own replies.
//
// Example: tavernlight/ack/trigger/execute
func (Topics) CommandAck(action string) string {
	return TopicPrefixAck + "/" + action
}

// CommandAction extracts the action from a command topic.
//
// Returns false when topic is not under TopicPrefixCommand.
func (Topics) CommandAction(topic string) (string, bool) {
	action, ok := strings.CutPrefix(topic, TopicPrefixCommand+"/")
	if !ok || action == "" {
		return "", false
	}
	return action, true
}
