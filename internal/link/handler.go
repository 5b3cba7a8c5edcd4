package link

// Handler is the decoder-side contract the feed dispatches into. All
// methods are called from the feed's goroutine, one event at a time.
type Handler interface {
	// CVValid probes whether a CV access would be accepted.
	CVValid(nr uint16, forWrite bool) bool
	// CVRead returns the current value of a CV.
	CVRead(nr uint16) (uint8, error)
	// CVWrite stores a CV value and returns the value now held.
	CVWrite(nr uint16, value uint8) (uint8, error)
	// FunctionGroupChanged delivers a fresh function group byte.
	FunctionGroupChanged(group uint8, bits uint8)
	// FactoryResetRequested arms a full restore of factory defaults.
	FactoryResetRequested()
	// ServiceModeEntered marks the start of a programming session.
	ServiceModeEntered()
	// ServiceModeExited marks the end of a programming session.
	ServiceModeExited()
	// AcknowledgeRequested asks for the basic ack pulse.
	AcknowledgeRequested()
	// PollTick paces background work between events.
	PollTick()
}
