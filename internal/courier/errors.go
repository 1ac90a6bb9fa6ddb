package courier

import "errors"

var (
	// ErrUnregisteredGateway means the gateway has not registered with its
	// upstream relay yet.
	ErrUnregisteredGateway = errors.New("gateway is not registered")

	// ErrDisconnectedFromCourier means no courier is reachable from this
	// device.
	ErrDisconnectedFromCourier = errors.New("device is not connected to a courier")
)
