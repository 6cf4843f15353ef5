package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/projectdiscovery/fleetping/internal/runner"
	"github.com/projectdiscovery/gologger"
)

func main() {
	// a .env next to the binary can hold FLEETPING_SSH_USER and
	// FLEETPING_SSH_PASSWORD so credentials stay out of inventories
	_ = godotenv.Load()

	options := runner.ParseOptions()

	fleetRunner, err := runner.NewRunner(options)
	if err != nil {
		gologger.Fatal().Msgf("could not create runner: %s\n", err)
	}
	defer fleetRunner.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		gologger.Info().Msgf("interrupt received, stopping probe sessions")
		cancel()
	}()

	if err := fleetRunner.Run(ctx); err != nil {
		gologger.Fatal().Msgf("could not run probe sessions: %s\n", err)
	}
}
