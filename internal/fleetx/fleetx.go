// Package fleetx runs probe tasks across a server fleet: it computes
// the concurrency ceiling, launches one SSH probe session per
// (server, target) pair, and coordinates the cooperative shutdown
// protocol.
package fleetx

import (
	"github.com/projectdiscovery/fleetping/pkg/inventory"
)

// ProbeTask is one unit of work: ping one target from one server.
type ProbeTask struct {
	Server inventory.Server
	Target string
}

// ExpandTasks flattens the inventory into the per-target task list, in
// inventory order.
func ExpandTasks(servers []inventory.Server) []ProbeTask {
	var tasks []ProbeTask
	for _, server := range servers {
		for _, target := range server.Targets {
			tasks = append(tasks, ProbeTask{Server: server, Target: target})
		}
	}
	return tasks
}
