//go:build rp2040 || rp2350

package board

import (
	"context"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"voiceboard-go/services/console"
	"voiceboard-go/types"
)

// DefaultDevice selects the embedded config document for this build.
const DefaultDevice = "assistant-rp2040"

const defaultBaud = 115200

// serialPort adapts a uartx UART to the console transport.
type serialPort struct{ u *uartx.UART }

func (p *serialPort) Write(b []byte) (int, error) { return p.u.Write(b) }
func (p *serialPort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	return p.u.RecvSomeContext(ctx, buf)
}

// DefaultPort opens UART0 for the console. Pin selection stays with uartx's
// board defaults.
func DefaultPort(cfg types.ConsoleConfig) console.Port {
	baud := cfg.Baud
	if baud == 0 {
		baud = defaultBaud
	}
	_ = uartx.UART0.Configure(uartx.UARTConfig{BaudRate: baud})
	return &serialPort{u: uartx.UART0}
}
