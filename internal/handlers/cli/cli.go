// Package cli is the command-line entry point: flag parsing, exit codes,
// and the startup/shutdown sequence wiring every component together.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v3"

	"poke/internal/abiregistry"
	"poke/internal/command"
	"poke/internal/config"
	"poke/internal/infra/storage/bolt"
	"poke/internal/ingest"
	"poke/internal/pkg/logger"
	"poke/internal/pkg/telemetry"
	"poke/internal/state"
	"poke/internal/transport"
	"poke/internal/ui"
)

// Exit codes per the external contract.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitBadEndpoint   = 2
	ExitConnectFailed = 3
)

// Sentinel errors Run wraps so MainContext can map them to exit codes.
var (
	ErrBadEndpoint   = errors.New("bad endpoint")
	ErrConnectFailed = errors.New("connection failed")
)

// ExitCode maps a Run error onto the contract exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrBadEndpoint):
		return ExitBadEndpoint
	case errors.Is(err, ErrConnectFailed):
		return ExitConnectFailed
	default:
		return ExitFailure
	}
}

// connectDeadline bounds the initial connection attempt.
const connectDeadline = 5 * time.Second

// Terminal is the rendering collaborator main injects; everything about
// widget geometry lives behind it.
type Terminal interface {
	ui.Renderer
	ui.InputSource
	ui.Clipboard
	Close()
}

// Run parses arguments and executes the session. Map the returned error to
// the contract exit code with ExitCode.
func Run(ctx context.Context, args []string, term Terminal) error {
	app := &cli.Command{
		Name:        "poke",
		Usage:       "poke [--rpc <url> | --ws <url> | --ipc <path>]",
		Description: "Interactive terminal companion for Ethereum nodes: live blocks, traces, storage, and an ABI-aware toolkit.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "rpc",
				Usage: "HTTP JSON-RPC endpoint URL",
			},
			&cli.StringFlag{
				Name:  "ws",
				Usage: "WebSocket JSON-RPC endpoint URL",
			},
			&cli.StringFlag{
				Name:  "ipc",
				Usage: "Local socket path",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			endpoint, err := endpointFromFlags(c)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrBadEndpoint, err)
			}
			return session(ctx, endpoint, term)
		},
	}

	return app.Run(ctx, args)
}

// endpointFromFlags resolves the three mutually exclusive endpoint flags.
func endpointFromFlags(c *cli.Command) (transport.Endpoint, error) {
	var given []string
	for _, flag := range []string{"rpc", "ws", "ipc"} {
		if c.String(flag) != "" {
			given = append(given, flag)
		}
	}
	if len(given) > 1 {
		return transport.Endpoint{}, fmt.Errorf("--rpc, --ws and --ipc are mutually exclusive")
	}

	switch {
	case c.String("rpc") != "":
		return transport.ParseEndpoint(c.String("rpc"))
	case c.String("ws") != "":
		return transport.ParseEndpoint(c.String("ws"))
	case c.String("ipc") != "":
		return transport.Endpoint{Scheme: transport.SchemeIPC, Addr: c.String("ipc")}, nil
	default:
		return transport.ParseEndpoint(config.DefaultEndpoint)
	}
}

// session runs one connected session to completion.
func session(ctx context.Context, endpoint transport.Endpoint, term Terminal) error {
	cfg := config.Load()

	if err := logger.Init(logger.WithLevel(cfg.LogLevel), logger.WithFile(cfg.LogFile)); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	telemetry.Init()

	labels, err := bolt.Open(cfg.LabelDB)
	if err != nil {
		return fmt.Errorf("label store: %w", err)
	}
	defer labels.Close()

	registry := abiregistry.NewStore()
	scanner := abiregistry.NewScanner(abiRoots(cfg)...)
	scanCtx, cancelScans := context.WithCancel(ctx)
	defer cancelScans()
	launchScan(scanCtx, scanner, registry)

	engine := ingest.New(endpoint)
	connectCtx, cancelConnect := context.WithTimeout(ctx, connectDeadline)
	events, err := engine.Start(connectCtx)
	cancelConnect()
	if err != nil {
		return fmt.Errorf("%w: cannot reach %s: %v", ErrConnectFailed, endpoint, err)
	}
	defer engine.Close()

	model := state.New(registry)
	model.Tokens = tokenConfigs(cfg)
	if stored, err := labels.ReadAll(); err == nil {
		model.Labels = stored
	} else {
		logger.Warn(ctx, "label read failed", "error", err)
	}
	if cfg.Warning != "" {
		model.Notify(cfg.Warning+" (defaults applied)", state.SeverityWarn)
	}

	commands := command.New(model, labels, cfg.LogFile)
	commands.ReloadABI = func() { launchScan(scanCtx, scanner, registry) }

	loop := &ui.Loop{
		Model:     model,
		Commands:  commands,
		Submit:    engine.Submit,
		Events:    events,
		Renderer:  term,
		Input:     term,
		Clipboard: term,
	}

	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

// launchScan runs one scan generation in the background and publishes its
// snapshot when it completes.
func launchScan(ctx context.Context, scanner *abiregistry.Scanner, store *abiregistry.Store) {
	results := scanner.Start(ctx)
	go func() {
		if registry, ok := <-results; ok && registry != nil {
			store.Swap(registry)
		}
	}()
}

// abiRoots combines the working directory with configured extra roots.
func abiRoots(cfg config.Config) []string {
	roots := []string{"."}
	roots = append(roots, cfg.ABIRoots...)
	return roots
}

// tokenConfigs converts config-file tokens into engine form, dropping any
// the validator already flagged.
func tokenConfigs(cfg config.Config) []ingest.TokenConfig {
	tokens := make([]ingest.TokenConfig, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokens = append(tokens, ingest.TokenConfig{
			Address:  common.HexToAddress(t.Address),
			Symbol:   t.Symbol,
			Decimals: t.Decimals,
		})
	}
	return tokens
}

// MainContext is the os.Exit-aware wrapper the cmd binary calls.
func MainContext(ctx context.Context, term Terminal) {
	if err := Run(ctx, os.Args, term); err != nil {
		term.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitCode(err))
	}
}
