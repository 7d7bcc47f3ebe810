package pwire

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// ReceiptStatus is the closed set of acknowledgement outcomes.
type ReceiptStatus string

const (
	// ReceiptComplete acknowledges a fully assembled and verified message.
	ReceiptComplete ReceiptStatus = "complete"

	// ReceiptMissing asks the sender to retransmit specific parcel indices.
	ReceiptMissing ReceiptStatus = "missing"

	// ReceiptChecksumFailed reports a complete but corrupted assembly.
	ReceiptChecksumFailed ReceiptStatus = "checksumFailed"
)

// Receipt is the acknowledgement record the receiver emits once per assembly
// outcome. It travels over the transport's control side-channel, never as a
// data parcel. Receipts are never mutated after creation.
type Receipt struct {
	MessageID      string        `json:"MessageID"`
	Status         ReceiptStatus `json:"Status"`
	MissingIndices []uint16      `json:"MissingIndices,omitempty"`
}

// NewCompleteReceipt acknowledges successful delivery of messageID.
func NewCompleteReceipt(messageID string) *Receipt {
	return &Receipt{
		MessageID: messageID,
		Status:    ReceiptComplete,
	}
}

// NewMissingReceipt requests retransmission of exactly the listed indices.
// Index 0 may itself be requested when the header never arrived.
func NewMissingReceipt(messageID string, missingIndices []uint16) *Receipt {
	return &Receipt{
		MessageID:      messageID,
		Status:         ReceiptMissing,
		MissingIndices: missingIndices,
	}
}

// NewChecksumFailedReceipt reports that every parcel arrived but the whole
// does not match the declared integrity code.
func NewChecksumFailedReceipt(messageID string) *Receipt {
	return &Receipt{
		MessageID: messageID,
		Status:    ReceiptChecksumFailed,
	}
}

// ToJSONBytes encodes the receipt for the control side-channel.
func (rec *Receipt) ToJSONBytes() ([]byte, error) {

	var json = jsoniter.ConfigFastest
	return json.Marshal(rec)
}

// ReadReceiptFromJSONBytes simply reads the bytes as a Receipt.
func ReadReceiptFromJSONBytes(data []byte) (*Receipt, error) {

	var json = jsoniter.ConfigFastest
	receipt := &Receipt{}
	err := json.Unmarshal(data, receipt)
	if err != nil {
		return nil, err
	}

	return receipt, nil
}

// ToString allows you to quickly log the Receipt struct as a string.
func (rec *Receipt) ToString() string {
	if rec.Status == ReceiptMissing {
		return fmt.Sprintf("[MessageID: %s] - %s %v\r\n", rec.MessageID, rec.Status, rec.MissingIndices)
	}

	return fmt.Sprintf("[MessageID: %s] - %s\r\n", rec.MessageID, rec.Status)
}
