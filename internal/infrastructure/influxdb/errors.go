package influxdb

import "errors"

// Sentinel errors for the telemetry backend, matched with errors.Is.
// ErrDisabled is the expected result of Connect on rigs that run
// without time-series telemetry.
var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
)
