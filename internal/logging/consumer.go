package logging

// Consumer receives immutable log snapshots from the Distributor in
// emission order. A Consumer must never retain a reference to the mutable
// record that produced a Snapshot — by the time OnEvent runs, that record
// may already be back in the pool for reuse.
type Consumer interface {
	// OnAdded is called exactly once, synchronously, when the consumer is
	// registered with a Manager.
	OnAdded(m *Manager)

	// OnEvent is called once per emitted record, in emission order. A
	// returned error isolates this consumer only — delivery to every other
	// consumer, and to subsequent events, continues unaffected.
	OnEvent(event Snapshot) error

	// OnError is called when this consumer's own OnEvent raised or
	// returned an error for the given event.
	OnError(event Snapshot, err error)

	// OnRemoved is called exactly once, synchronously, when the consumer
	// is unregistered or the Manager shuts down. No further OnEvent calls
	// follow.
	OnRemoved(m *Manager)
}
