package mqtt

import "fmt"

// Topic prefixes for the rig message bus.
//
// Rig traffic uses the flat scheme: testrig/rig/{rig_id}/{connector}/{direction}
// where direction is tx (frames leaving the rig) or rx (frames arriving).
const (
	// TopicPrefixRig is the base for all per-rig topics.
	TopicPrefixRig = "testrig/rig"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "testrig/system"
)

// Topics provides builders for Testrig MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	txTopic := topics.RigTx("rig-lab-01", "dut")
//	// Returns: "testrig/rig/rig-lab-01/dut/tx"
type Topics struct{}

// =============================================================================
// Rig Topics
// =============================================================================

// RigTx returns the topic a rig publishes outbound connector frames on.
//
// Example: testrig/rig/rig-lab-01/dut/tx
func (Topics) RigTx(rigID, connector string) string {
	return fmt.Sprintf("%s/%s/%s/tx", TopicPrefixRig, rigID, connector)
}

// RigRx returns the topic a rig receives inbound connector frames on.
//
// Example: testrig/rig/rig-lab-01/dut/rx
func (Topics) RigRx(rigID, connector string) string {
	return fmt.Sprintf("%s/%s/%s/rx", TopicPrefixRig, rigID, connector)
}

// RigStatus returns the topic for a rig's online/offline status.
//
// Example: testrig/rig/rig-lab-01/status
func (Topics) RigStatus(rigID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixRig, rigID)
}

// RigStats returns the topic for a rig's proxy traffic statistics.
//
// Example: testrig/rig/rig-lab-01/stats
func (Topics) RigStats(rigID string) string {
	return fmt.Sprintf("%s/%s/stats", TopicPrefixRig, rigID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: testrig/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: testrig/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllRigTx returns a pattern matching every rig's outbound frame topics.
//
// Pattern: testrig/rig/+/+/tx
func (Topics) AllRigTx() string {
	return fmt.Sprintf("%s/+/+/tx", TopicPrefixRig)
}

// AllRigRx returns a pattern matching every rig's inbound frame topics.
//
// Pattern: testrig/rig/+/+/rx
func (Topics) AllRigRx() string {
	return fmt.Sprintf("%s/+/+/rx", TopicPrefixRig)
}

// AllRigStatus returns a pattern matching every rig's status topic.
//
// Pattern: testrig/rig/+/status
func (Topics) AllRigStatus() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixRig)
}

// AllTopics returns a pattern matching all Testrig topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: testrig/#
func (Topics) AllTopics() string {
	return "testrig/#"
}
