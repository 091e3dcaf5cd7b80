//go:build !(rp2040 || rp2350)

package board

import (
	"context"
	"io"
	"os"

	"voiceboard-go/services/console"
	"voiceboard-go/types"
)

// DefaultDevice selects the embedded config document for this build.
const DefaultDevice = "assistant-host"

// stdioPort adapts stdin/stdout to the console transport. A pump goroutine
// owns the blocking stdin read and hands chunks over a channel so
// RecvSomeContext stays cancellable; the pump lives until process exit.
type stdioPort struct {
	in  <-chan []byte
	out io.Writer

	pending []byte
}

// DefaultPort returns the console transport for host builds: stdio. Baud
// has no meaning here; the parameter keeps the variants interchangeable.
func DefaultPort(_ types.ConsoleConfig) console.Port {
	ch := make(chan []byte, 4)
	go func() {
		buf := make([]byte, 256)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				chunk := make([]byte, n)
				copy(chunk, buf[:n])
				ch <- chunk
			}
			if err != nil {
				close(ch)
				return
			}
		}
	}()
	return &stdioPort{in: ch, out: os.Stdout}
}

func (p *stdioPort) Write(b []byte) (int, error) { return p.out.Write(b) }

func (p *stdioPort) RecvSomeContext(ctx context.Context, buf []byte) (int, error) {
	if len(p.pending) == 0 {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case chunk, ok := <-p.in:
			if !ok {
				return 0, io.EOF
			}
			p.pending = chunk
		}
	}
	n := copy(buf, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}
