package builtin

import (
	"testing"

	"github.com/nerrad567/testrig-core/internal/locator"
)

func TestNewRegistryResolvesBuiltins(t *testing.T) {
	reg := NewRegistry()

	connectorLocators := []string{
		"connectors/loopback:Loopback",
		"connectors/tcpraw:TCPRaw",
		"connectors/mqttbus:MQTTBus",
	}
	for _, s := range connectorLocators {
		loc, err := locator.Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", s, err)
		}
		if _, err := reg.ResolveConnector(loc); err != nil {
			t.Errorf("ResolveConnector(%q) error = %v", s, err)
		}
	}

	auxiliaryLocators := []string{
		"auxiliary/com:Com",
		"auxiliary/recorder:Recorder",
	}
	for _, s := range auxiliaryLocators {
		loc, err := locator.Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", s, err)
		}
		if _, err := reg.ResolveAuxiliary(loc); err != nil {
			t.Errorf("ResolveAuxiliary(%q) error = %v", s, err)
		}
	}
}

func TestRegisterIntoExistingRegistry(t *testing.T) {
	reg := locator.NewRegistry()
	Register(reg)

	loc := locator.Locator{Module: "connectors/loopback", Type: "Loopback"}
	factory, err := reg.ResolveConnector(loc)
	if err != nil {
		t.Fatalf("ResolveConnector() error = %v", err)
	}

	conn, err := factory(nil)
	if err != nil {
		t.Fatalf("factory error = %v", err)
	}
	if conn == nil {
		t.Fatal("factory returned nil connector")
	}
}
