package captivedns

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

// DefaultTTL is the TTL of synthesized answers in seconds.
const DefaultTTL = 60

// Config holds the responder configuration.
type Config struct {
	// Port is the UDP port to listen on.
	// Default: 53. Use -1 for an ephemeral port.
	Port int

	// ListenHost overrides the address the socket binds to. The answers
	// still carry the address passed to Start.
	// Default: the address passed to Start
	ListenHost string

	// TTL of the synthesized records.
	// Default: 60
	TTL uint32
}

// Responder is a wildcard DNS server.
type Responder struct {
	config Config
	logger *zap.Logger

	mu      sync.Mutex
	server  *dns.Server
	answer  netip.Addr
	queries uint64
}

// New creates a Responder. A nil logger discards output.
func New(config Config, logger *zap.Logger) *Responder {
	if config.Port == 0 {
		config.Port = 53
	}
	if config.Port < 0 {
		config.Port = 0
	}
	if config.TTL == 0 {
		config.TTL = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{config: config, logger: logger}
}

// Start binds the socket and serves in the background. Every A query is
// answered with bind.
func (r *Responder) Start(bind netip.Addr) error {
	if !bind.Is4() {
		return fmt.Errorf("captive DNS needs an IPv4 address, got %s", bind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.server != nil {
		return nil
	}

	host := r.config.ListenHost
	if host == "" {
		host = bind.String()
	}
	pc, err := net.ListenPacket("udp4", net.JoinHostPort(host, strconv.Itoa(r.config.Port)))
	if err != nil {
		return fmt.Errorf("failed to bind DNS socket: %w", err)
	}

	started := make(chan struct{})
	failed := make(chan error, 1)
	srv := &dns.Server{
		PacketConn:        pc,
		Handler:           dns.HandlerFunc(r.serveDNS),
		NotifyStartedFunc: func() { close(started) },
	}
	go func() {
		if err := srv.ActivateAndServe(); err != nil {
			failed <- err
			r.logger.Warn("captive DNS stopped", zap.Error(err))
		}
	}()

	select {
	case <-started:
	case err := <-failed:
		pc.Close()
		return fmt.Errorf("failed to start captive DNS: %w", err)
	case <-time.After(2 * time.Second):
		pc.Close()
		return fmt.Errorf("captive DNS did not start in time")
	}

	r.answer = bind
	r.server = srv

	r.logger.Info("captive DNS started",
		zap.String("listen", pc.LocalAddr().String()),
		zap.String("answer", bind.String()))
	return nil
}

// Stop shuts the server down. Stopping a stopped responder is a no-op.
func (r *Responder) Stop() error {
	r.mu.Lock()
	srv := r.server
	r.server = nil
	r.mu.Unlock()

	if srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.ShutdownContext(ctx); err != nil {
		return fmt.Errorf("failed to stop captive DNS: %w", err)
	}
	r.logger.Info("captive DNS stopped")
	return nil
}

// Addr returns the bound socket address, or "" when stopped.
func (r *Responder) Addr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.server == nil || r.server.PacketConn == nil {
		return ""
	}
	return r.server.PacketConn.LocalAddr().String()
}

// Queries returns the number of queries answered.
func (r *Responder) Queries() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queries
}

func (r *Responder) serveDNS(w dns.ResponseWriter, req *dns.Msg) {
	r.mu.Lock()
	answer := r.answer
	r.queries++
	r.mu.Unlock()

	m := new(dns.Msg)
	m.SetReply(req)
	m.Authoritative = true
	m.RecursionAvailable = false

	for _, q := range req.Question {
		if q.Qclass != dns.ClassINET {
			continue
		}
		switch q.Qtype {
		case dns.TypeA, dns.TypeANY:
			m.Answer = append(m.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: r.config.TTL},
				A:   net.IP(answer.AsSlice()),
			})
		}
		r.logger.Debug("captive DNS query",
			zap.String("name", q.Name), zap.String("type", dns.TypeToString[q.Qtype]))
	}

	if err := w.WriteMsg(m); err != nil {
		r.logger.Debug("failed to write DNS reply", zap.Error(err))
	}
}
