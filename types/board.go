package types

// Board collaborators. The IR subsystem only calls through these interfaces;
// concrete wiring (SPI panels, charger chips, GPIO buttons) stays in the
// board assembly.

// Display shows short user-facing callouts ("IR code learned: tv_pwr").
type Display interface {
	ShowNotification(msg string)
}

// Backlight dims or brightens the panel.
type Backlight interface {
	SetBrightness(percent uint8) error
}

// PowerManager reports battery state for power-aware services.
type PowerManager interface {
	BatteryLevel() int // percent, -1 when unknown
	Charging() bool
}

// Button delivers press callbacks; registration replaces the previous
// callback.
type Button interface {
	OnClick(fn func())
	OnLongPress(fn func())
}

// LedStrip is the animation strip. Disable frees any hardware channel the
// strip shares with other peripherals (some boards multiplex the IR TX pin
// with the strip's PWM slice); Enable restores it. Variants without shared
// channels implement both as no-ops.
type LedStrip interface {
	Enable()
	Disable()
}

// ---- No-op collaborator variants ----

type NopDisplay struct{}

func (NopDisplay) ShowNotification(string) {}

type NopBacklight struct{}

func (NopBacklight) SetBrightness(uint8) error { return nil }

type NopPower struct{}

func (NopPower) BatteryLevel() int { return -1 }
func (NopPower) Charging() bool    { return false }

type NopStrip struct{}

func (NopStrip) Enable()  {}
func (NopStrip) Disable() {}
