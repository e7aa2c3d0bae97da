// Package vpn supervises OpenVPN client connections.
// This file contains the periodic status poller.
package vpn

import "time"

// statusPoller refreshes tunnel byte counters over the management
// interface while the session stays connected. Failed queries are
// skipped silently; the next tick retries.
type statusPoller struct {
	client   *ManagementClient
	grace    time.Duration
	interval time.Duration
	state    func() State
	apply    func(Counters)

	prev Counters
}

func newStatusPoller(client *ManagementClient, grace, interval time.Duration, state func() State, apply func(Counters)) *statusPoller {
	if interval <= 0 {
		interval = time.Second
	}
	return &statusPoller{
		client:   client,
		grace:    grace,
		interval: interval,
		state:    state,
		apply:    apply,
	}
}

// run blocks until the session ends or the state leaves Connected.
// The first query happens only after the grace period so the daemon
// can finish bringing the tunnel up.
func (p *statusPoller) run(done <-chan struct{}) {
	if p.grace > 0 {
		select {
		case <-done:
			return
		case <-time.After(p.grace):
		}
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if p.state() != StateConnected {
			return
		}
		p.poll()
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

func (p *statusPoller) poll() {
	counters, err := p.client.QueryStatus(p.prev)
	if err != nil {
		return
	}
	p.prev = counters
	p.apply(counters)
}
