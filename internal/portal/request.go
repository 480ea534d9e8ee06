package portal

import (
	"sync"

	"github.com/muurk/autoconnect/internal/credential"
)

// requests holds edge-triggered flags set by other goroutines. take
// returns and clears them in one step.
type requests struct {
	mu         sync.Mutex
	connect    bool
	target     *credential.Credential
	disconnect bool
	reset      bool
	scan       bool
}

type pending struct {
	connect    bool
	target     *credential.Credential
	disconnect bool
	reset      bool
	scan       bool
}

func (r *requests) take() pending {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := pending{
		connect:    r.connect,
		target:     r.target,
		disconnect: r.disconnect,
		reset:      r.reset,
		scan:       r.scan,
	}
	r.connect, r.target, r.disconnect, r.reset, r.scan = false, nil, false, false, false
	return p
}

func (r *requests) connectPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connect
}

// RequestConnect asks the controller to join a network on its next poll.
// A nil target seeks among saved credentials, skipping the current
// network. A later request replaces an earlier unconsumed one. Status
// reports the request as Pending until a poll consumes it.
func (c *Controller) RequestConnect(target *credential.Credential) {
	c.req.mu.Lock()
	c.req.connect = true
	if target != nil {
		t := *target
		c.req.target = &t
	} else {
		c.req.target = nil
	}
	c.req.mu.Unlock()

	c.snapMu.Lock()
	c.snap.Pending = true
	c.snapMu.Unlock()
}

// RequestDisconnect asks the controller to drop the station link.
func (c *Controller) RequestDisconnect() {
	c.req.mu.Lock()
	defer c.req.mu.Unlock()
	c.req.disconnect = true
}

// RequestReset asks the controller to stop everything and run OnReset.
func (c *Controller) RequestReset() {
	c.req.mu.Lock()
	defer c.req.mu.Unlock()
	c.req.reset = true
}

// RequestScan asks the controller to refresh the scan list.
func (c *Controller) RequestScan() {
	c.req.mu.Lock()
	defer c.req.mu.Unlock()
	c.req.scan = true
}
