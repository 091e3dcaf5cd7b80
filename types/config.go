package types

// Per-service configuration documents. The config service publishes each
// section retained on {"config", <service>}; services decode the payload
// they care about and ignore the rest.

// IRConfig selects the capture/transmit wiring for a board variant.
type IRConfig struct {
	// RxPin is the demodulated receiver input. Negative disables capture.
	RxPin int `json:"rx_pin"`
	// TxPin drives the IR LED. Negative disables transmit.
	TxPin int `json:"tx_pin"`
	// Backend selects the capture implementation: "pulse" decodes edge
	// timings in software, "vendor" uses the hardware helper where one
	// exists. Empty means "pulse".
	Backend string `json:"backend,omitempty"`
	// QueueDepth bounds the capture hand-off queue. Zero means the default.
	QueueDepth int `json:"queue_depth,omitempty"`
}

// HeartbeatConfig tunes the liveness ticker.
type HeartbeatConfig struct {
	IntervalS int `json:"interval"`
}

// ConsoleConfig selects the serial console port parameters.
type ConsoleConfig struct {
	Baud uint32 `json:"baud,omitempty"`
}
