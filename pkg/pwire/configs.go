package pwire

import (
	"io/ioutil"
	"time"

	"github.com/BurntSushi/toml"
	jsoniter "github.com/json-iterator/go"
)

// ParcelSeasoning represents the configuration values.
type ParcelSeasoning struct {
	PolicyConfig      *PolicyConfig      `json:"PolicyConfig" yaml:"PolicyConfig" toml:"PolicyConfig"`
	CompressionConfig *CompressionConfig `json:"CompressionConfig" yaml:"CompressionConfig" toml:"CompressionConfig"`
}

// PolicyConfig carries the pacing, retry and staleness policy the transport
// scheduler honors. The codec itself never sleeps or retries, these values
// only define the contract.
type PolicyConfig struct {
	InterParcelDelayMillis       uint32 `json:"InterParcelDelayMillis" yaml:"InterParcelDelayMillis" toml:"InterParcelDelayMillis"`
	ListenWindowEveryParcels     uint32 `json:"ListenWindowEveryParcels" yaml:"ListenWindowEveryParcels" toml:"ListenWindowEveryParcels"`
	ListenWindowMillis           uint32 `json:"ListenWindowMillis" yaml:"ListenWindowMillis" toml:"ListenWindowMillis"`
	ReceiptTimeoutMillis         uint32 `json:"ReceiptTimeoutMillis" yaml:"ReceiptTimeoutMillis" toml:"ReceiptTimeoutMillis"`
	MissingRequestIntervalMillis uint32 `json:"MissingRequestIntervalMillis" yaml:"MissingRequestIntervalMillis" toml:"MissingRequestIntervalMillis"`
	MaxRetryCount                uint32 `json:"MaxRetryCount" yaml:"MaxRetryCount" toml:"MaxRetryCount"`
	StaleTimeoutSeconds          uint32 `json:"StaleTimeoutSeconds" yaml:"StaleTimeoutSeconds" toml:"StaleTimeoutSeconds"`
	SweepIntervalSeconds         uint32 `json:"SweepIntervalSeconds" yaml:"SweepIntervalSeconds" toml:"SweepIntervalSeconds"`
}

// CompressionConfig gates whether outgoing payloads may be compressed at all.
// Per-message capability still comes from the peer discovery flag.
type CompressionConfig struct {
	Enabled bool `json:"Enabled" yaml:"Enabled" toml:"Enabled"`
}

// DefaultSeasoning returns a fully populated configuration using the package
// policy defaults.
func DefaultSeasoning() *ParcelSeasoning {

	return &ParcelSeasoning{
		PolicyConfig: &PolicyConfig{
			InterParcelDelayMillis:       DefaultInterParcelDelayMillis,
			ListenWindowEveryParcels:     DefaultListenWindowEveryParcels,
			ListenWindowMillis:           DefaultListenWindowMillis,
			ReceiptTimeoutMillis:         DefaultReceiptTimeoutMillis,
			MissingRequestIntervalMillis: DefaultMissingRequestIntervalMillis,
			MaxRetryCount:                DefaultMaxRetryCount,
			StaleTimeoutSeconds:          DefaultStaleTimeoutSeconds,
			SweepIntervalSeconds:         DefaultSweepIntervalSeconds,
		},
		CompressionConfig: &CompressionConfig{
			Enabled: true,
		},
	}
}

// ConvertJSONFileToConfig opens a file.json and converts to ParcelSeasoning.
func ConvertJSONFileToConfig(fileNamePath string) (*ParcelSeasoning, error) {

	byteValue, err := ioutil.ReadFile(fileNamePath)
	if err != nil {
		return nil, err
	}

	config := &ParcelSeasoning{}
	var json = jsoniter.ConfigFastest
	err = json.Unmarshal(byteValue, config)

	return config, err
}

// ConvertTOMLFileToConfig opens a file.toml and converts to ParcelSeasoning.
func ConvertTOMLFileToConfig(fileNamePath string) (*ParcelSeasoning, error) {

	config := &ParcelSeasoning{}
	_, err := toml.DecodeFile(fileNamePath, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}

// InterParcelDelay is the pause between successive parcel writes.
func (policy *PolicyConfig) InterParcelDelay() time.Duration {
	return time.Duration(policy.InterParcelDelayMillis) * time.Millisecond
}

// ListenWindow is how long the sender stays quiet every
// ListenWindowEveryParcels parcels so the peer can transmit a receipt.
func (policy *PolicyConfig) ListenWindow() time.Duration {
	return time.Duration(policy.ListenWindowMillis) * time.Millisecond
}

// ReceiptTimeout is how long the sender waits for a receipt before assuming
// it was lost.
func (policy *PolicyConfig) ReceiptTimeout() time.Duration {
	return time.Duration(policy.ReceiptTimeoutMillis) * time.Millisecond
}

// MissingRequestInterval rate-limits repeated missing-parcel requests.
func (policy *PolicyConfig) MissingRequestInterval() time.Duration {
	return time.Duration(policy.MissingRequestIntervalMillis) * time.Millisecond
}

// StaleTimeout is how long an incomplete incoming message is kept.
func (policy *PolicyConfig) StaleTimeout() time.Duration {
	return time.Duration(policy.StaleTimeoutSeconds) * time.Second
}

// SweepInterval is how often the receiver looks for stale assembly state.
func (policy *PolicyConfig) SweepInterval() time.Duration {
	return time.Duration(policy.SweepIntervalSeconds) * time.Second
}
