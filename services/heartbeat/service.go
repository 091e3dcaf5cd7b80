// Package heartbeat ticks a retained liveness message so off-board tooling
// can tell the firmware is still up.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"voiceboard-go/bus"
	"voiceboard-go/types"
	"voiceboard-go/x/jsonx"
	"voiceboard-go/x/timex"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	topicState           = bus.Topic{"heartbeat", "state"}
)

const defaultInterval = 5 * time.Second

type Service struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{log: log.With("service", "heartbeat")}
}

// Run executes the heartbeat loop on the caller's goroutine until ctx is
// cancelled. Callers own the goroutine so shutdown can be joined.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	// loop until context is cancelled, respond to tick and config changes
	for {
		select {
		case <-ctx.Done():
			s.log.Info("heartbeat stopping")
			return
		case <-tick.C:
			conn.Publish(conn.NewMessage(topicState, types.ServiceState{
				Level:  "ready",
				Status: "beat",
				TS:     timex.NowMs(),
			}, true))
		case msg := <-cfgSub.Channel():
			var cfg types.HeartbeatConfig
			if err := jsonx.Decode(msg.Payload, &cfg); err != nil {
				s.log.Warn("bad heartbeat config", "err", err)
				continue
			}
			if cfg.IntervalS > 0 {
				tick.Reset(time.Duration(cfg.IntervalS) * time.Second)
				s.log.Info("heartbeat interval set", "seconds", cfg.IntervalS)
			}
		}
	}
}
