// Package types holds the payload structs and collaborator interfaces shared
// across services. It deliberately imports nothing from the rest of the tree.
package types

// ---- Common service state (retained) ----

type ServiceState struct {
	Level  string `json:"level"`  // e.g. "idle", "ready", "stopped"
	Status string `json:"status"` // freeform short code
	TS     int64  `json:"ts_ms"`
	Error  string `json:"error,omitempty"`
}

// ---- Generic replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ---- IR bus payloads ----

// IREvent is published for every signal the receiver resolves, learned or
// not. Raw=true means no protocol matched and Value/Bits are meaningless.
type IREvent struct {
	Protocol uint8  `json:"protocol"`
	Name     string `json:"name"` // protocol name, "RAW", or "UNKNOWN"
	Value    uint64 `json:"value"`
	Bits     uint16 `json:"bits"`
	Raw      bool   `json:"raw"`
	TS       int64  `json:"ts_ms"`
}

// IRSendRequest asks the IR service to replay a stored code by name.
type IRSendRequest struct {
	Name    string `json:"name"`
	RawOnly bool   `json:"raw_only,omitempty"`
}

// IRLearnRequest arms learning mode. An empty name selects auto-naming.
type IRLearnRequest struct {
	Name string `json:"name,omitempty"`
}

// IRLearnedEvent reports a capture saved while learning.
type IRLearnedEvent struct {
	Name     string `json:"name"`
	Protocol uint8  `json:"protocol"`
	Raw      bool   `json:"raw"`
	TS       int64  `json:"ts_ms"`
}

// ---- Board status payloads ----

// PowerState is the retained battery snapshot the board publishes.
type PowerState struct {
	BatteryPct int   `json:"battery_pct"` // -1 when unknown
	Charging   bool  `json:"charging"`
	TS         int64 `json:"ts_ms"`
}
