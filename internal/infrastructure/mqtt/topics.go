package mqtt

import "fmt"

// Topic prefixes for the Rush Core event feed.
const (
	// TopicPrefixEvents is the base for shipment change events.
	TopicPrefixEvents = "rushd/events"

	// TopicPrefixSystem is the base for service status topics.
	TopicPrefixSystem = "rushd/system"
)

// Topics provides builders for Rush Core MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// Event returns the topic for a shipment change event.
//
// Example: rushd/events/parcel_update
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvents, eventType)
}

// SystemStatus returns the service status topic.
//
// Example: rushd/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllEvents returns a pattern matching every shipment change event.
//
// Pattern: rushd/events/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/+", TopicPrefixEvents)
}
