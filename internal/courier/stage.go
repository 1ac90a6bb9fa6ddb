package courier

// Stage is a protocol unit streamed to the client while a courier sync is
// in progress.
type Stage string

const (
	StageCollection Stage = "COLLECTION"
	StageWait       Stage = "WAIT"
	StageDelivery   Stage = "DELIVERY"
)

func (s Stage) String() string {
	return string(s)
}
