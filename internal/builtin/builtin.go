// Package builtin registers the factories shipped with the rig core
// against a locator registry.
//
// The locator module paths mirror the package paths under internal/, so a
// config entry like
//
//	type: "connectors/tcpraw:TCPRaw"
//
// reads as "the TCPRaw type from the connectors/tcpraw module".
// Deployments with bespoke components build their own registry, call
// Register for the built-ins they want, and add their own factories
// alongside.
package builtin

import (
	"github.com/nerrad567/testrig-core/internal/auxiliary/com"
	"github.com/nerrad567/testrig-core/internal/auxiliary/recorder"
	"github.com/nerrad567/testrig-core/internal/connectors/loopback"
	"github.com/nerrad567/testrig-core/internal/connectors/mqttbus"
	"github.com/nerrad567/testrig-core/internal/connectors/tcpraw"
	"github.com/nerrad567/testrig-core/internal/locator"
)

// Register installs every built-in factory into the registry.
func Register(reg *locator.Registry) {
	reg.RegisterConnector("connectors/loopback", "Loopback", loopback.Factory)
	reg.RegisterConnector("connectors/tcpraw", "TCPRaw", tcpraw.Factory)
	reg.RegisterConnector("connectors/mqttbus", "MQTTBus", mqttbus.Factory)

	reg.RegisterAuxiliary("auxiliary/com", "Com", com.Factory)
	reg.RegisterAuxiliary("auxiliary/recorder", "Recorder", recorder.Factory)
}

// NewRegistry returns a registry pre-populated with the built-ins.
func NewRegistry() *locator.Registry {
	reg := locator.NewRegistry()
	Register(reg)
	return reg
}
