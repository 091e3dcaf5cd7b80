// Package console runs a line-oriented command console for the IR service
// over a serial port. Input bytes drain through a ring buffer so the port
// keeps emptying while a blocking command (a learn wait) is running; lines
// are tokenized with shlex so quoted code names survive.
package console

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/shlex"

	"voiceboard-go/errcode"
	"voiceboard-go/services/ir"
	"voiceboard-go/x/fmtx"
	"voiceboard-go/x/shmring"
	"voiceboard-go/x/strconvx"
)

// Port is the byte transport the console runs over. uartx devices satisfy
// it on boards; the host daemon adapts stdio.
type Port interface {
	Write(p []byte) (int, error)
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

// Commands is the slice of the IR service the console drives. *ir.Service
// implements it.
type Commands interface {
	StartLearning(name string) error
	StopLearning()
	LearnCommand(ctx context.Context, timeoutS int) (ir.Learned, error)
	Status() ir.Status
	SaveCode(name string, protocol int, value uint64, bits int) error
	ListCodes() []ir.CodeInfo
	DeleteCode(name string) (bool, error)
	DeleteAllCodes() error
	SendCode(name string) error
	SendRawCode(name string) error
	ExportConstants() (string, error)
}

const (
	ringSize = 256 // power of two
	maxLine  = 128
	readBuf  = 64
)

const helpText = "commands:\r\n" +
	"  status                              service summary\r\n" +
	"  learn [timeout_s]                   capture one code, auto-named\r\n" +
	"  arm [name]                          start learning mode\r\n" +
	"  disarm                              stop learning mode\r\n" +
	"  save <name> <protocol> <hex> <bits> store a code manually\r\n" +
	"  list                                stored codes\r\n" +
	"  del <name>                          delete one code\r\n" +
	"  wipe                                delete all codes\r\n" +
	"  send <name>                         transmit a stored code\r\n" +
	"  sendraw <name>                      replay the raw capture\r\n" +
	"  export                              dump codes as C constants\r\n" +
	"  help                                this text\r\n"

type Options struct {
	Port Port
	IR   Commands
	Log  *slog.Logger
}

type Service struct {
	port Port
	ir   Commands
	log  *slog.Logger

	hdl  shmring.Handle
	ring *shmring.Ring
	wg   sync.WaitGroup
}

func New(o Options) *Service {
	if o.Log == nil {
		o.Log = slog.Default()
	}
	hdl, ring := shmring.New(ringSize)
	return &Service{
		port: o.Port,
		ir:   o.IR,
		log:  o.Log.With("service", "console"),
		hdl:  hdl,
		ring: ring,
	}
}

// Run starts the port reader and serves commands until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	if s.port == nil || s.ir == nil {
		s.log.Error("console without port or service")
		return
	}

	s.wg.Add(1)
	go s.readLoop(ctx)

	s.printf("IR console ready. Type 'help'.\r\n> ")
	s.commandLoop(ctx)

	s.wg.Wait()
	shmring.Close(s.hdl)
	s.log.Info("console stopped")
}

// readLoop drains the port into the ring. A full ring drops bytes; the
// command loop reports the shortfall as a garbled line, which for an
// interactive console is acceptable.
func (s *Service) readLoop(ctx context.Context) {
	defer s.wg.Done()
	buf := make([]byte, readBuf)
	for {
		n, err := s.port.RecvSomeContext(ctx, buf)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.log.Warn("port read failed", "err", err)
			return
		}
		if n > 0 {
			s.ring.WriteFrom(buf[:n])
		}
	}
}

// commandLoop assembles lines from the ring and dispatches them. CR is
// ignored, LF terminates; bytes past maxLine are discarded until the next
// terminator.
func (s *Service) commandLoop(ctx context.Context) {
	chunk := make([]byte, readBuf)
	line := make([]byte, 0, maxLine)
	for {
		if s.ring.Available() == 0 {
			select {
			case <-ctx.Done():
				return
			case <-s.ring.Readable():
			}
		}
		n := s.ring.ReadInto(chunk)
		for i := 0; i < n; i++ {
			switch b := chunk[i]; b {
			case '\n':
				s.dispatch(ctx, string(line))
				line = line[:0]
			case '\r':
				// ignore
			default:
				if len(line) < maxLine {
					line = append(line, b)
				}
			}
		}
	}
}

func (s *Service) printf(format string, a ...any) {
	if _, err := fmtx.Fprintf(s.port, format, a...); err != nil {
		s.log.Warn("port write failed", "err", err)
	}
}

func (s *Service) fail(err error) {
	if errcode.Of(err) == errcode.Timeout {
		s.printf("%s\r\n", ir.NoSignalMessage)
		return
	}
	s.printf("error: %s\r\n", err.Error())
}

func (s *Service) dispatch(ctx context.Context, raw string) {
	defer s.printf("> ")

	tokens, err := shlex.Split(raw)
	if err != nil {
		s.printf("error: %s\r\n", err.Error())
		return
	}
	if len(tokens) == 0 {
		return
	}
	verb, args := tokens[0], tokens[1:]
	s.log.Debug("console command", "verb", verb)

	switch verb {
	case "help":
		s.printf("%s", helpText)

	case "status":
		st := s.ir.Status()
		s.printf("learning=%t codes=%d receiver=%t transmitter=%t\r\n",
			st.Learning, st.Codes, st.Receiver, st.Transmitter)
		if st.PendingName != "" {
			s.printf("pending=%s\r\n", st.PendingName)
		}

	case "learn":
		timeout := 0
		if len(args) > 0 {
			t, err := strconvx.Atoi(args[0])
			if err != nil {
				s.printf("usage: learn [timeout_s]\r\n")
				return
			}
			timeout = t
		}
		s.printf("waiting for IR signal...\r\n")
		learned, err := s.ir.LearnCommand(ctx, timeout)
		if err != nil {
			s.fail(err)
			return
		}
		s.printLearned(learned)

	case "arm":
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		if err := s.ir.StartLearning(name); err != nil {
			s.fail(err)
			return
		}
		if name != "" {
			s.printf("learning armed for %q\r\n", name)
		} else {
			s.printf("learning armed\r\n")
		}

	case "disarm":
		s.ir.StopLearning()
		s.printf("learning stopped\r\n")

	case "save":
		if len(args) != 4 {
			s.printf("usage: save <name> <protocol> <hex> <bits>\r\n")
			return
		}
		protocol, err1 := strconvx.Atoi(args[1])
		value, err2 := ir.ParseHexValue(args[2])
		bits, err3 := strconvx.Atoi(args[3])
		if err1 != nil || err2 != nil || err3 != nil {
			s.printf("usage: save <name> <protocol> <hex> <bits>\r\n")
			return
		}
		if err := s.ir.SaveCode(args[0], protocol, value, bits); err != nil {
			s.fail(err)
			return
		}
		s.printf("saved %s\r\n", args[0])

	case "list":
		codes := s.ir.ListCodes()
		if len(codes) == 0 {
			s.printf("no codes stored\r\n")
			return
		}
		for _, c := range codes {
			if c.Data != nil {
				s.printf("%s protocol=%d value=%s bits=%d\r\n",
					c.Name, c.Data.Protocol, ir.HexValue(c.Data.Value), c.Data.Bits)
			} else {
				s.printf("%s raw pulses=%d\r\n", c.Name, c.RawLen)
			}
		}

	case "del":
		if len(args) != 1 {
			s.printf("usage: del <name>\r\n")
			return
		}
		found, err := s.ir.DeleteCode(args[0])
		if err != nil {
			s.fail(err)
			return
		}
		if !found {
			s.printf("error: no such code %q\r\n", args[0])
			return
		}
		s.printf("deleted %s\r\n", args[0])

	case "wipe":
		if err := s.ir.DeleteAllCodes(); err != nil {
			s.fail(err)
			return
		}
		s.printf("all codes deleted\r\n")

	case "send":
		if len(args) != 1 {
			s.printf("usage: send <name>\r\n")
			return
		}
		if err := s.ir.SendCode(args[0]); err != nil {
			s.fail(err)
			return
		}
		s.printf("sent %s\r\n", args[0])

	case "sendraw":
		if len(args) != 1 {
			s.printf("usage: sendraw <name>\r\n")
			return
		}
		if err := s.ir.SendRawCode(args[0]); err != nil {
			s.fail(err)
			return
		}
		s.printf("sent %s\r\n", args[0])

	case "export":
		text, err := s.ir.ExportConstants()
		if err != nil {
			s.fail(err)
			return
		}
		s.printf("%s", text)

	default:
		s.printf("unknown command %q; try 'help'\r\n", verb)
	}
}

func (s *Service) printLearned(l ir.Learned) {
	switch {
	case l.HasCmd:
		s.printf("learned %s protocol=%s value=%s bits=%d\r\n",
			l.Name, l.Cmd.Protocol.String(), ir.HexValue(l.Cmd.Value), int(l.Cmd.Bits))
	default:
		s.printf("learned %s raw pulses=%d\r\n", l.Name, len(l.Raw))
	}
}
