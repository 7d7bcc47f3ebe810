package pwire

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	cmap "github.com/orcaman/concurrent-map"
	"go.uber.org/zap"
)

// Sender tracks every in-flight OutgoingMessage together with its immutable
// parcel sequence and turns receipts from the peer into retransmission work.
// The transport drains NextRetransmits and performs the actual radio writes,
// paced by the PolicyConfig values.
type Sender struct {
	policy             *PolicyConfig
	compressionEnabled bool
	logger             *zap.Logger

	inFlight    cmap.ConcurrentMap
	retransmits *queue.Queue

	deliveryReceipts chan *DeliveryReceipt

	shutdownSignal chan struct{}
	once           sync.Once
}

type inFlightMessage struct {
	message *OutgoingMessage
	parcels []*Parcel

	sentLock   *sync.Mutex
	lastSentAt time.Time
}

func (entry *inFlightMessage) markSent(now time.Time) {
	entry.sentLock.Lock()
	defer entry.sentLock.Unlock()
	entry.lastSentAt = now
}

func (entry *inFlightMessage) sentAt() time.Time {
	entry.sentLock.Lock()
	defer entry.sentLock.Unlock()
	return entry.lastSentAt
}

// NewSenderFromConfig creates and configures a new Sender. A nil logger
// disables logging.
func NewSenderFromConfig(config *ParcelSeasoning, logger *zap.Logger) *Sender {

	policy := config.PolicyConfig
	if policy.MaxRetryCount == 0 {
		policy.MaxRetryCount = DefaultMaxRetryCount
	}
	if policy.ReceiptTimeoutMillis == 0 {
		policy.ReceiptTimeoutMillis = DefaultReceiptTimeoutMillis
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sender{
		policy:             policy,
		compressionEnabled: config.CompressionConfig == nil || config.CompressionConfig.Enabled,
		logger:             logger,
		inFlight:           cmap.New(),
		retransmits:        queue.New(1000),
		deliveryReceipts:   make(chan *DeliveryReceipt, 1000),
		shutdownSignal:     make(chan struct{}),
	}
}

// Register splits the message into its parcel sequence and starts tracking it
// for receipt-driven retries. The returned parcels are transmitted by the
// transport in ascending index order, honoring the pacing policy. A message
// id already in flight to any peer is re-rolled a few times before giving up.
func (sen *Sender) Register(msg *OutgoingMessage) ([]*Parcel, error) {

	select {
	case <-sen.shutdownSignal:
		return nil, ErrSenderShutdown
	default:
	}

	if !sen.compressionEnabled {
		msg.PeerSupportsCompression = false
	}

	for attempt := 0; sen.inFlight.Has(msg.MessageID); attempt++ {
		if attempt >= 5 {
			return nil, ErrMessageIDCollision
		}
		msg.MessageID = RandomMessageID()
	}

	parcels, err := Split(msg)
	if err != nil {
		return nil, err
	}

	entry := &inFlightMessage{
		message:    msg,
		parcels:    parcels,
		sentLock:   &sync.Mutex{},
		lastSentAt: time.Now().UTC(),
	}

	if !sen.inFlight.SetIfAbsent(msg.MessageID, entry) {
		return nil, ErrMessageIDCollision
	}

	sen.logger.Debug("registered outgoing message",
		zap.String("MessageID", msg.MessageID),
		zap.String("TargetPeerID", msg.TargetPeerID),
		zap.Int("TotalParcels", len(parcels)),
		zap.Bool("Compressed", parcels[0].Algorithm() != CompressionNone))

	return parcels, nil
}

// HandleReceipt consumes one acknowledgement from the peer.
//
// complete frees the message and emits a success DeliveryReceipt. missing
// spends one retry and queues exactly the requested indices. checksumFailed
// spends one retry and queues the full sequence, a whole-message checksum
// cannot say which parcel is corrupt. A spent retry budget abandons the send
// with a failure DeliveryReceipt.
func (sen *Sender) HandleReceipt(receipt *Receipt) {

	value, found := sen.inFlight.Get(receipt.MessageID)
	if !found {
		sen.logger.Warn("receipt for unknown message",
			zap.String("MessageID", receipt.MessageID),
			zap.String("Status", string(receipt.Status)))
		return
	}
	entry := value.(*inFlightMessage)

	switch receipt.Status {
	case ReceiptComplete:
		sen.inFlight.Remove(receipt.MessageID)
		sen.deliveryReceipts <- &DeliveryReceipt{
			LetterID:  entry.message.LetterID,
			MessageID: entry.message.MessageID,
			Success:   true,
		}

	case ReceiptMissing:
		if !sen.spendRetry(entry) {
			return
		}

		for _, index := range receipt.MissingIndices {
			if int(index) >= len(entry.parcels) {
				sen.logger.Warn("missing receipt names unknown index",
					zap.String("MessageID", receipt.MessageID),
					zap.Uint16("ParcelIndex", index))
				continue
			}
			_ = sen.retransmits.Put(entry.parcels[index])
		}
		entry.markSent(time.Now().UTC())

	case ReceiptChecksumFailed:
		if !sen.spendRetry(entry) {
			return
		}

		for _, parcel := range entry.parcels {
			_ = sen.retransmits.Put(parcel)
		}
		entry.markSent(time.Now().UTC())

	default:
		sen.logger.Warn("receipt with unknown status",
			zap.String("MessageID", receipt.MessageID),
			zap.String("Status", string(receipt.Status)))
	}
}

// HandleReceiptBytes decodes a control side-channel buffer and applies it.
func (sen *Sender) HandleReceiptBytes(data []byte) error {

	receipt, err := ReadReceiptFromJSONBytes(data)
	if err != nil {
		return err
	}

	sen.HandleReceipt(receipt)
	return nil
}

// spendRetry burns one retry unit and reports whether the message may still
// be retransmitted. Exhaustion abandons the send and surfaces a failure
// distinct from data corruption, so callers can tell "peer unreachable" from
// "data corrupted".
func (sen *Sender) spendRetry(entry *inFlightMessage) bool {

	newCount := atomic.AddUint32(&entry.message.RetryCount, 1)
	if newCount <= sen.policy.MaxRetryCount {
		return true
	}

	sen.inFlight.Remove(entry.message.MessageID)
	sen.logger.Warn("abandoning message, retry limit reached",
		zap.String("MessageID", entry.message.MessageID),
		zap.String("TargetPeerID", entry.message.TargetPeerID),
		zap.Uint32("RetryCount", newCount-1))

	sen.deliveryReceipts <- &DeliveryReceipt{
		LetterID:      entry.message.LetterID,
		MessageID:     entry.message.MessageID,
		FailedMessage: entry.message,
		Success:       false,
		Error:         ErrRetryLimitReached,
	}

	return false
}

// NextRetransmits waits up to timeout for queued retransmission parcels and
// returns at most count of them. It returns nil on timeout or shutdown.
func (sen *Sender) NextRetransmits(count int64, timeout time.Duration) []*Parcel {

	items, err := sen.retransmits.Poll(count, timeout)
	if err != nil {
		return nil
	}

	parcels := make([]*Parcel, 0, len(items))
	for _, item := range items {
		parcels = append(parcels, item.(*Parcel))
	}

	return parcels
}

// StalledMessages returns every in-flight message whose last transmission is
// older than the receipt timeout. The transport may proactively retransmit
// or re-query the peer, the receipt was probably lost.
func (sen *Sender) StalledMessages(now time.Time) []*OutgoingMessage {

	stalled := make([]*OutgoingMessage, 0)

	for item := range sen.inFlight.IterBuffered() {
		entry := item.Val.(*inFlightMessage)
		if now.Sub(entry.sentAt()) > sen.policy.ReceiptTimeout() {
			stalled = append(stalled, entry.message)
		}
	}

	return stalled
}

// ParcelsFor returns the cached immutable parcel sequence for an in-flight
// message, for transports that want to resend without re-splitting.
func (sen *Sender) ParcelsFor(messageID string) ([]*Parcel, bool) {

	value, found := sen.inFlight.Get(messageID)
	if !found {
		return nil, false
	}

	return value.(*inFlightMessage).parcels, true
}

// MarkSent resets the receipt timer after the transport finishes writing a
// message's parcels.
func (sen *Sender) MarkSent(messageID string) {

	if value, found := sen.inFlight.Get(messageID); found {
		value.(*inFlightMessage).markSent(time.Now().UTC())
	}
}

// InFlightCount returns how many messages are awaiting acknowledgement.
func (sen *Sender) InFlightCount() int {
	return sen.inFlight.Count()
}

// DeliveryReceipts yields terminal delivery outcomes for the application.
func (sen *Sender) DeliveryReceipts() <-chan *DeliveryReceipt {
	return sen.deliveryReceipts
}

// Shutdown stops accepting work and releases the retransmission queue.
func (sen *Sender) Shutdown() {

	sen.once.Do(func() {
		close(sen.shutdownSignal)
		sen.retransmits.Dispose()
	})
}
