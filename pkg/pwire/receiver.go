package pwire

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Receiver routes raw inbound buffers into assembly state and emits receipts
// and fully assembled messages. It performs no radio I/O, the transport calls
// Ingest from its notification callback and drains the channels.
//
// The parse-kind hint is derived from session state: no assembly entry for
// (peer, messageID) means a header parcel is expected, an existing entry
// means a data parcel. Terminal outcomes drop the entry, so a full resend
// after a checksum failure starts over with a header again. Byte content is
// never used to guess the kind.
type Receiver struct {
	policy *PolicyConfig
	table  *AssemblyTable
	logger *zap.Logger

	sweepStarted bool
	recLock      *sync.Mutex

	receipts  chan *Receipt
	assembled chan *AssembledMessage
	errors    chan error
	sweepStop chan bool
}

// NewReceiverFromConfig creates and configures a new Receiver. A nil logger
// disables logging.
func NewReceiverFromConfig(config *ParcelSeasoning, logger *zap.Logger) *Receiver {

	policy := config.PolicyConfig
	if policy.StaleTimeoutSeconds == 0 {
		policy.StaleTimeoutSeconds = DefaultStaleTimeoutSeconds
	}
	if policy.SweepIntervalSeconds == 0 {
		policy.SweepIntervalSeconds = DefaultSweepIntervalSeconds
	}
	if policy.MissingRequestIntervalMillis == 0 {
		policy.MissingRequestIntervalMillis = DefaultMissingRequestIntervalMillis
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Receiver{
		policy:    policy,
		table:     NewAssemblyTable(),
		logger:    logger,
		recLock:   &sync.Mutex{},
		receipts:  make(chan *Receipt, 1000),
		assembled: make(chan *AssembledMessage, 1000),
		errors:    make(chan error, 1000),
		sweepStop: make(chan bool, 1),
	}
}

// Ingest consumes one raw buffer received from sourcePeerID. Framing errors
// are dropped silently per protocol, the sender's missing-parcel mechanism
// recovers the loss.
//
// Calls for one (peer, message id) pair must be serialized by the transport,
// parcels for different peers or message ids may arrive concurrently.
func (rec *Receiver) Ingest(sourcePeerID string, data []byte) {

	if len(data) < MessageIDLength {
		rec.logger.Debug("dropping undersized buffer",
			zap.String("SourcePeerID", sourcePeerID),
			zap.Int("Length", len(data)))
		return
	}

	messageID := string(data[0:MessageIDLength])

	msg, found := rec.table.Get(sourcePeerID, messageID)
	if !found {

		header, err := ParseParcel(data, HeaderParcelKind)
		if err != nil {
			rec.logger.Debug("dropping unparseable header parcel",
				zap.String("SourcePeerID", sourcePeerID),
				zap.Error(err))
			return
		}

		msg, err = rec.table.Start(sourcePeerID, header)
		if err != nil {
			rec.logger.Warn("rejecting header parcel",
				zap.String("SourcePeerID", sourcePeerID),
				zap.String("MessageID", messageID),
				zap.Error(err))
			return
		}

	} else {

		parcel, err := ParseParcel(data, DataParcelKind)
		if err != nil {
			rec.logger.Debug("dropping unparseable data parcel",
				zap.String("SourcePeerID", sourcePeerID),
				zap.String("MessageID", messageID),
				zap.Error(err))
			return
		}

		if err := msg.AddParcel(parcel); err != nil {
			rec.logger.Debug("dropping out-of-range parcel",
				zap.String("SourcePeerID", sourcePeerID),
				zap.String("MessageID", messageID),
				zap.Error(err))
			return
		}
	}

	if msg.IsComplete() {
		rec.finish(msg)
	}
}

// finish runs the terminal assembly attempt and emits the outcome. The table
// entry is always dropped, a retransmission after checksum failure restarts
// from the header.
func (rec *Receiver) finish(msg *IncomingMessage) {

	payload, err := msg.Assemble()
	rec.table.Remove(msg.SourcePeerID, msg.MessageID)

	switch {
	case err == nil:
		rec.receipts <- NewCompleteReceipt(msg.MessageID)
		rec.assembled <- &AssembledMessage{
			MessageID:    msg.MessageID,
			SourcePeerID: msg.SourcePeerID,
			Payload:      payload,
			ReceivedAt:   JSONUtcTimestamp(),
		}

	case errors.Is(err, ErrChecksumMismatch):
		rec.logger.Warn("assembled message failed checksum",
			zap.String("SourcePeerID", msg.SourcePeerID),
			zap.String("MessageID", msg.MessageID))
		rec.receipts <- NewChecksumFailedReceipt(msg.MessageID)

	default:
		// decompression failure, resending identical bytes cannot help
		rec.logger.Error("assembled message failed decompression",
			zap.String("SourcePeerID", msg.SourcePeerID),
			zap.String("MessageID", msg.MessageID),
			zap.Error(err))
		rec.errors <- fmt.Errorf("message %s from %s failed: %w", msg.MessageID, msg.SourcePeerID, err)
	}
}

// BuildMissingReceipt returns a rate-limited missing-parcels receipt for an
// incomplete message, or nil when there is nothing to request right now. The
// transport calls this from its poll loop and sends whatever comes back.
func (rec *Receiver) BuildMissingReceipt(sourcePeerID string, messageID string) *Receipt {

	msg, found := rec.table.Get(sourcePeerID, messageID)
	if !found {
		return nil
	}

	missing := msg.MissingIndices()
	if len(missing) == 0 {
		return nil
	}

	if !msg.ShouldRequestMissing(time.Now().UTC(), rec.policy.MissingRequestInterval()) {
		return nil
	}

	msg.MarkMissingRequestSent()

	return NewMissingReceipt(messageID, missing)
}

// AssemblingCount returns how many messages are mid-assembly.
func (rec *Receiver) AssemblingCount() int {
	return rec.table.Count()
}

// Receipts yields the acknowledgements the transport must deliver back to
// the sending peer.
func (rec *Receiver) Receipts() <-chan *Receipt {
	return rec.receipts
}

// AssembledMessages yields recovered payloads for the application layer.
func (rec *Receiver) AssembledMessages() <-chan *AssembledMessage {
	return rec.assembled
}

// Errors yields hard per-message failures such as decompression errors.
func (rec *Receiver) Errors() <-chan error {
	return rec.errors
}

// StartSweeping launches the background staleness sweep. Safe to call once,
// subsequent calls are no-ops until StopSweeping.
func (rec *Receiver) StartSweeping() {

	rec.recLock.Lock()
	defer rec.recLock.Unlock()

	if rec.sweepStarted {
		return
	}

	rec.sweepStarted = true
	go rec.sweepLoop()
}

func (rec *Receiver) sweepLoop() {

	ticker := time.NewTicker(rec.policy.SweepInterval())
	defer ticker.Stop()

	for {
		select {
		case <-rec.sweepStop:
			return
		case now := <-ticker.C:
			for _, msg := range rec.table.SweepStale(now.UTC(), rec.policy.StaleTimeout()) {
				rec.logger.Info("evicting stale incoming message",
					zap.String("SourcePeerID", msg.SourcePeerID),
					zap.String("MessageID", msg.MessageID),
					zap.Int("ReceivedParcels", msg.ReceivedCount()),
					zap.Uint16("TotalParcels", msg.TotalParcels))
			}
		}
	}
}

// StopSweeping halts the background staleness sweep.
func (rec *Receiver) StopSweeping() {

	rec.recLock.Lock()
	defer rec.recLock.Unlock()

	if !rec.sweepStarted {
		return
	}

	rec.sweepStarted = false
	rec.sweepStop <- true
}
