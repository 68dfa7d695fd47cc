package corrpool

// BufferStatus is the lifecycle state of one buffer.
type BufferStatus uint8

const (
	StatusFree BufferStatus = iota
	StatusBeingFilled
	StatusReady
	StatusBeingProcessed

	numStatuses = 4
)

// String returns the status name used in logs and the status API.
func (s BufferStatus) String() string {
	switch s {
	case StatusFree:
		return "free"
	case StatusBeingFilled:
		return "being_filled"
	case StatusReady:
		return "ready"
	case StatusBeingProcessed:
		return "being_processed"
	default:
		return "unknown"
	}
}
