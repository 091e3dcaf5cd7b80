package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Populate embeddedConfigs at build time (e.g. via code generation) or
// manually during development.
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgAssistantRP2040 = `{
  "ir": {
      "rx_pin": 15,
      "tx_pin": 16,
      "backend": "pulse",
      "queue_depth": 64
  },
  "console": {
      "baud": 115200
  },
  "heartbeat": {
      "interval": 5
  }
}`

const cfgAssistantHost = `{
  "ir": {
      "rx_pin": 0,
      "tx_pin": 1,
      "backend": "sim"
  },
  "console": {
      "baud": 115200
  },
  "heartbeat": {
      "interval": 2
  }
}`

var embeddedConfigs = map[string][]byte{
	"assistant-rp2040": []byte(cfgAssistantRP2040),
	"assistant-host":   []byte(cfgAssistantHost),
}
