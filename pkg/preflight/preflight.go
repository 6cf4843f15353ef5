// Package preflight checks which servers answer ICMP from the local
// host before any SSH session is attempted. The check is advisory:
// filtered ICMP does not imply SSH will fail, so unanswered servers
// are reported, never skipped.
package preflight

import (
	"sort"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/projectdiscovery/gologger"
	mapsutil "github.com/projectdiscovery/utils/maps"
	syncutil "github.com/projectdiscovery/utils/sync"
)

const (
	probeCount   = 3
	probeTimeout = 2 * time.Second
	poolSize     = 16
)

// Result is the outcome of probing one server address.
type Result struct {
	Address    string
	Reachable  bool
	PacketLoss float64
	AvgRtt     time.Duration
	Error      string
}

// pingHost is swappable in tests.
var pingHost = func(address string) (Result, error) {
	pinger, err := probing.NewPinger(address)
	if err != nil {
		return Result{Address: address}, err
	}
	pinger.Count = probeCount
	pinger.Timeout = probeTimeout
	pinger.Interval = 100 * time.Millisecond
	pinger.SetPrivileged(false)

	if err := pinger.Run(); err != nil {
		return Result{Address: address}, err
	}

	stats := pinger.Statistics()
	return Result{
		Address:    address,
		Reachable:  stats.PacketsRecv > 0,
		PacketLoss: stats.PacketLoss,
		AvgRtt:     stats.AvgRtt,
	}, nil
}

// Run probes every address concurrently and returns the outcomes keyed
// by address.
func Run(addresses []string) (map[string]Result, error) {
	outcomes := mapsutil.NewSyncLockMap[string, Result]()

	awg, err := syncutil.New(syncutil.WithSize(poolSize))
	if err != nil {
		return nil, err
	}
	for _, address := range addresses {
		awg.Add()
		go func(address string) {
			defer awg.Done()
			result, err := pingHost(address)
			if err != nil {
				result = Result{Address: address, Error: err.Error()}
			}
			_ = outcomes.Set(address, result)
		}(address)
	}
	awg.Wait()

	collected := make(map[string]Result, len(addresses))
	_ = outcomes.Iterate(func(address string, result Result) error {
		collected[address] = result
		return nil
	})
	return collected, nil
}

// Review logs every outcome and returns the addresses that did not
// answer, sorted for stable output.
func Review(outcomes map[string]Result) []string {
	var unreachable []string
	for address, result := range outcomes {
		switch {
		case result.Error != "":
			gologger.Warning().Msgf("preflight %s: %s", address, result.Error)
			unreachable = append(unreachable, address)
		case !result.Reachable:
			gologger.Warning().Msgf("preflight %s: no ICMP reply (%.0f%% loss)", address, result.PacketLoss)
			unreachable = append(unreachable, address)
		default:
			gologger.Verbose().Msgf("preflight %s: reachable, avg rtt %s", address, result.AvgRtt)
		}
	}
	sort.Strings(unreachable)
	return unreachable
}
