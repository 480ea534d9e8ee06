package radio

import (
	"context"
	"errors"
)

// ErrNotSupported is returned by drivers for operations the hardware
// cannot perform.
var ErrNotSupported = errors.New("operation not supported by radio driver")

// Driver is the radio collaborator consumed by the portal controller.
type Driver interface {
	// Scan performs a blocking scan and returns results sorted by
	// descending signal strength.
	Scan(ctx context.Context) ([]ScanResult, error)

	// Connect starts joining a network. It returns once the request is
	// issued; progress is observed through Status.
	Connect(ctx context.Context, req ConnectRequest) error

	// Status reports the station connection status.
	Status() Status

	// Station describes the current association. Valid only while
	// Status is StatusConnected.
	Station() StationInfo

	// StartAccessPoint raises the local access point.
	StartAccessPoint(ctx context.Context, id APIdentity, ip IPConfig) error

	// StopAccessPoint tears the access point down.
	StopAccessPoint() error

	// Disconnect drops the station association. When clearSaved is true
	// the driver also forgets any credentials it persisted itself.
	Disconnect(clearSaved bool) error
}
