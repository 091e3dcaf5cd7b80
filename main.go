package main

import (
	"context"
	"time"

	"voiceboard-go/board"
	"voiceboard-go/settings"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	b := board.New(board.Options{
		Device:   board.DefaultDevice,
		Port:     board.DefaultPort(board.ConsoleConfigFor(board.DefaultDevice)),
		Settings: settings.NewMemStore(),
	})
	b.Run(context.Background())
}
