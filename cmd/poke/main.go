package main

import (
	"context"
	"os/signal"
	"syscall"

	"poke/internal/handlers/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	term := newTerminal()
	defer term.Close()

	cli.MainContext(ctx, term)
}
