// Package platform binds the ircore contracts to what the build target
// actually offers. On rp2040/rp2350 images that is machine pins with edge
// interrupts, the vendor NEC helper and a PWM carrier; everywhere else it
// is in-process simulators that tests and the host daemon drive directly.
// Capability discovery happens here so the service never type-switches on
// the target.
package platform

import (
	"voiceboard-go/services/ir/internal/ircore"
)

// Backend names accepted in IRConfig.Backend.
const (
	BackendPulse  = "pulse"
	BackendVendor = "vendor"
)

// Set is the IR hardware a board variant exposes. Nil fields mean the
// capability is absent; the service degrades per operation instead of
// failing construction.
type Set struct {
	Receiver ircore.Receiver
	Carrier  ircore.Carrier
}
