package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/zap"
)

// ServiceName is the OS service name.
const ServiceName = "autoconnectd"

// stopTimeout bounds how long Stop waits for the run function.
const stopTimeout = 10 * time.Second

// RunFunc is the body of the service. It returns when ctx is done.
type RunFunc func(ctx context.Context) error

// program adapts a RunFunc to service.Interface.
type program struct {
	run    RunFunc
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start implements service.Interface. It must not block.
func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		err := p.run(ctx)
		if err != nil {
			p.logger.Error("Service run failed", zap.Error(err))
		}
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
	}()
	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(s service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		p.logger.Warn("Service stop timed out", zap.Duration("timeout", stopTimeout))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// NewService wraps run as an OS service. args are passed to the
// executable when the service manager starts it.
func NewService(run RunFunc, args []string, logger *zap.Logger) (service.Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	config := &service.Config{
		Name:        ServiceName,
		DisplayName: "AutoConnect",
		Description: "Wi-Fi bootstrap daemon with captive configuration portal",
		Arguments:   args,
	}
	return service.New(&program{run: run, logger: logger}, config)
}

// Platform names the service manager in use, e.g. "linux-systemd".
func Platform() string { return service.Platform() }

// Interactive reports whether the process runs from a terminal rather
// than under the service manager.
func Interactive() bool { return service.Interactive() }
