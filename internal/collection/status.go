package collection

import (
	_ "embed"

	"github.com/xeipuuv/gojsonschema"

	"github.com/relaynet/gatewayd/util"
)

// Status is the reachability of the upstream relay, as reported by the
// parcel collection subprocess.
type Status string

const (
	StatusConnected    Status = "CONNECTED"
	StatusDisconnected Status = "DISCONNECTED"
)

func (s Status) String() string {
	return string(s)
}

//go:embed status.schema.json
var statusSchemaJSON []byte

var statusSchema = util.Must(
	gojsonschema.NewSchema(gojsonschema.NewBytesLoader(statusSchemaJSON)),
)

// DecodeStatus translates a raw subprocess message into a Status. Messages
// that are not status reports are ignored.
func DecodeStatus(msg map[string]any) (Status, bool) {
	if msg == nil {
		return "", false
	}

	result, err := statusSchema.Validate(gojsonschema.NewGoLoader(msg))
	if err != nil || !result.Valid() {
		return "", false
	}

	switch msg["status"] {
	case "connected":
		return StatusConnected, true
	case "disconnected":
		return StatusDisconnected, true
	}

	return "", false
}
