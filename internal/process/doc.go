// Package process supervises the external helper processes a rig depends
// on: protocol daemons, brokers, device simulators, and remote channel
// workers spawned to drive multiprocess proxy channels.
//
// A Supervisor owns one worker. It respawns the worker with exponential
// backoff when it dies, relays its output into the rig log line by line,
// and tears the whole process group down on Stop so a worker that forked
// children cannot outlive the rig.
//
// Example usage:
//
//	sup := process.New(process.Config{
//	    Name:    "mosquitto",
//	    Binary:  "/usr/sbin/mosquitto",
//	    Args:    []string{"-c", "/etc/mosquitto/mosquitto.conf"},
//	    Restart: true,
//	})
//
//	if err := sup.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer sup.Stop()
package process
