package pwire

import (
	"time"

	cmap "github.com/orcaman/concurrent-map"
)

// AssemblyTable owns all in-flight IncomingMessage state, keyed by
// (peerID, messageID). The map handles concurrent access across keys, each
// IncomingMessage serializes its own mutation internally.
type AssemblyTable struct {
	messages cmap.ConcurrentMap
}

// NewAssemblyTable creates an empty AssemblyTable.
func NewAssemblyTable() *AssemblyTable {

	return &AssemblyTable{
		messages: cmap.New(),
	}
}

func assemblyKey(peerID string, messageID string) string {
	return peerID + "|" + messageID
}

// Get returns the assembly state for (peerID, messageID) when one exists.
func (at *AssemblyTable) Get(peerID string, messageID string) (*IncomingMessage, bool) {

	value, found := at.messages.Get(assemblyKey(peerID, messageID))
	if !found {
		return nil, false
	}

	return value.(*IncomingMessage), true
}

// Start creates assembly state from a header parcel, or returns the existing
// state when the header is a duplicate delivery (the header's own chunk is
// re-added idempotently in that case).
func (at *AssemblyTable) Start(peerID string, header *Parcel) (*IncomingMessage, error) {

	msg, err := NewIncomingMessage(peerID, header)
	if err != nil {
		return nil, err
	}

	if !at.messages.SetIfAbsent(assemblyKey(peerID, header.MessageID), msg) {

		existing, _ := at.Get(peerID, header.MessageID)
		if existing != nil {
			if err := existing.AddParcel(header); err != nil {
				return nil, err
			}
			return existing, nil
		}

		// entry vanished between SetIfAbsent and Get, claim the key
		at.messages.Set(assemblyKey(peerID, header.MessageID), msg)
	}

	return msg, nil
}

// Remove drops the assembly state for (peerID, messageID).
func (at *AssemblyTable) Remove(peerID string, messageID string) {
	at.messages.Remove(assemblyKey(peerID, messageID))
}

// Count returns how many messages are currently being assembled.
func (at *AssemblyTable) Count() int {
	return at.messages.Count()
}

// SweepStale evicts every incomplete message older than timeout and returns
// what was evicted so the caller can log or notify.
func (at *AssemblyTable) SweepStale(now time.Time, timeout time.Duration) []*IncomingMessage {

	evicted := make([]*IncomingMessage, 0)

	for entry := range at.messages.IterBuffered() {
		msg := entry.Val.(*IncomingMessage)
		if msg.IsStale(now, timeout) {
			at.messages.Remove(entry.Key)
			evicted = append(evicted, msg)
		}
	}

	return evicted
}
