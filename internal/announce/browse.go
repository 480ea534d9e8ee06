package announce

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/autoconnect/internal/acconfig"
)

const (
	// ServiceType is the advertised mDNS service
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultBrowseTimeout bounds a Browse call
	DefaultBrowseTimeout = 5 * time.Second

	// DefaultPort is assumed when an entry carries no port
	DefaultPort = 80
)

// Browser finds portal hosts.
type Browser struct {
	Timeout time.Duration
	Service string
}

// NewBrowser creates a Browser with default settings.
func NewBrowser() *Browser {
	return &Browser{
		Timeout: DefaultBrowseTimeout,
		Service: ServiceType,
	}
}

// Browse collects portal hosts until the timeout or ctx ends.
func (b *Browser) Browse(ctx context.Context) ([]*Peer, error) {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var (
		mu    sync.Mutex
		peers []*Peer
		seen  = make(map[string]bool)
	)
	entries := make(chan *zeroconf.ServiceEntry)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			p := parseEntry(entry)
			if p == nil {
				continue
			}
			mu.Lock()
			if !seen[p.Instance] {
				seen[p.Instance] = true
				peers = append(peers, p)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, b.Service, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	<-ctx.Done()

	// the resolver closes entries once ctx is done
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Peer(nil), peers...), nil
}

// parseEntry converts a service entry into a Peer. Entries without a
// portal path record or without any address are ignored.
func parseEntry(entry *zeroconf.ServiceEntry) *Peer {
	meta := parseText(entry.Text)
	if !strings.HasPrefix(meta["path"], acconfig.PortalPrefix) {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Peer{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     meta,
		DiscoveredAt: time.Now(),
	}
}

func parseText(records []string) map[string]string {
	meta := make(map[string]string, len(records))
	for _, txt := range records {
		k, v, _ := strings.Cut(txt, "=")
		meta[k] = v
	}
	return meta
}
