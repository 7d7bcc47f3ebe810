package pwire

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutgoingMessage is the sender-side intent: one payload bound for one peer.
// The payload stays uncompressed here, compression is decided at split time.
type OutgoingMessage struct {
	LetterID                uuid.UUID
	MessageID               string
	Payload                 []byte
	TargetPeerID            string
	EnqueuedAt              time.Time
	RetryCount              uint32
	PeerSupportsCompression bool
}

// NewOutgoingMessage creates an OutgoingMessage with a fresh letter id and a
// random wire message id. The compression capability flag comes from the
// transport's peer discovery, the core never negotiates it.
func NewOutgoingMessage(targetPeerID string, payload []byte, peerSupportsCompression bool) *OutgoingMessage {

	return &OutgoingMessage{
		LetterID:                uuid.New(),
		MessageID:               RandomMessageID(),
		Payload:                 payload,
		TargetPeerID:            targetPeerID,
		EnqueuedAt:              time.Now().UTC(),
		RetryCount:              0,
		PeerSupportsCompression: peerSupportsCompression,
	}
}

// DeliveryReceipt is a way to monitor delivery success and failure when using
// receipt-driven sending.
type DeliveryReceipt struct {
	LetterID      uuid.UUID
	MessageID     string
	FailedMessage *OutgoingMessage
	Success       bool
	Error         error
}

// ToString allows you to quickly log the DeliveryReceipt struct as a string.
func (rec *DeliveryReceipt) ToString() string {
	if rec.Success {
		return fmt.Sprintf("[LetterID: %s] - Delivery successful.\r\n", rec.LetterID.String())
	}

	return fmt.Sprintf("[LetterID: %s] - Delivery failed.\r\nError: %s\r\n", rec.LetterID.String(), rec.Error.Error())
}

// AssembledMessage is handed to the receiving application once a message has
// been fully reassembled, verified and decompressed.
type AssembledMessage struct {
	MessageID    string
	SourcePeerID string
	Payload      []byte
	ReceivedAt   string
}
