// cmd/assistantd/main.go
//
// assistantd runs the IR service graph on a host: sqlite-backed code
// storage, the bus services, and the MCP command surface on stdio. Stdout
// belongs to the MCP transport, so logs go to stderr.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"voiceboard-go/board"
	"voiceboard-go/mcptool"
	"voiceboard-go/services/config"
	"voiceboard-go/settings"
)

func main() {
	var (
		dbPath  = flag.String("db", "voiceboard.db", "settings database path")
		device  = flag.String("device", board.DefaultDevice, "embedded config document to publish")
		cfgPath = flag.String("config", "", "JSON config document overriding the embedded one")
		logLvl  = flag.String("log-level", "info", "debug, info, warn or error")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(*logLvl)}))

	if *cfgPath != "" {
		if err := overrideConfig(*device, *cfgPath); err != nil {
			log.Error("config file rejected", "path", *cfgPath, "err", err)
			os.Exit(1)
		}
		log.Info("using config file", "path", *cfgPath)
	}

	store, err := settings.OpenSQLite(*dbPath)
	if err != nil {
		log.Error("settings unavailable", "path", *dbPath, "err", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := board.New(board.Options{
		Device:   *device,
		Display:  logDisplay{log: log},
		Settings: store,
		Log:      log,
	})

	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	log.Info("assistantd up", "db", *dbPath, "device", *device)
	if err := server.ServeStdio(mcptool.NewServer(b.IR(), log)); err != nil {
		log.Error("mcp server stopped", "err", err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		log.Warn("board shutdown timed out")
	}
}

// overrideConfig installs the file at path as the config document for
// device, shadowing the embedded one. The file must hold a JSON object.
func overrideConfig(device, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var probe map[string]any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return err
	}
	embedded := config.EmbeddedConfigLookup
	config.EmbeddedConfigLookup = func(dev string) ([]byte, bool) {
		if dev == device {
			return raw, true
		}
		return embedded(dev)
	}
	return nil
}

// logDisplay stands in for the panel on a headless host; notifications
// land in the log instead.
type logDisplay struct{ log *slog.Logger }

func (d logDisplay) ShowNotification(msg string) { d.log.Info("display", "msg", msg) }

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
