package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"settlechain/config"
	"settlechain/core/genesis"
	"settlechain/core/state"
	"settlechain/core/types"
	"settlechain/core/u128"
	"settlechain/crypto"
	"settlechain/gateway/middleware"
	"settlechain/gateway/routes"
	"settlechain/observability/logging"
	telemetry "settlechain/observability/otel"
)

const defaultConfig = "./config.toml"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) < 1 {
		usage(stdout)
		return errors.New("missing command")
	}
	switch args[0] {
	case "genesis":
		return runGenesis(args[1:], stdout)
	case "balance":
		return runBalance(args[1:], stdout)
	case "rewards":
		return runRewards(args[1:], stdout)
	case "events":
		return runEvents(args[1:], stdout)
	case "serve":
		return runServe(args[1:])
	case "keygen":
		return runKeygen(args[1:], stdout)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	default:
		usage(stdout)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: settlectl <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  genesis   apply a genesis file to an empty ledger")
	fmt.Fprintln(w, "  balance   print the STX account of a principal")
	fmt.Fprintln(w, "  rewards   list the payment schedule at a height in the canonical fork")
	fmt.Fprintln(w, "  events    print journaled ledger events")
	fmt.Fprintln(w, "  serve     run the query API and metrics endpoint")
	fmt.Fprintln(w, "  keygen    generate a key pair and print its address")
}

// setup parses the shared flags and opens the node.
func setup(fs *flag.FlagSet, args []string) (*node, error) {
	configPath := fs.String("config", defaultConfig, "Path to the settlement config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	logger := logging.SetupWithOptions(logging.Options{
		Service:    "settlectl",
		Env:        cfg.Network,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Output:     os.Stderr,
	})
	return openNode(cfg, logger)
}

func runGenesis(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("genesis", flag.ContinueOnError)
	genesisPath := fs.String("genesis", "", "Genesis file; defaults to GenesisFile from the config")
	n, err := setup(fs, args)
	if err != nil {
		return err
	}
	defer n.Close()

	path := strings.TrimSpace(*genesisPath)
	if path == "" {
		path = n.cfg.GenesisFile
	}
	spec, err := genesis.LoadGenesisSpec(path)
	if err != nil {
		return err
	}
	if spec.Mainnet() != n.cfg.Mainnet() {
		return fmt.Errorf("genesis network does not match configured network %s", n.cfg.Network)
	}
	root, err := n.cs.ApplyGenesis(spec)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "genesis state root %s\n", root.Hex())
	return nil
}

type accountOutput struct {
	Principal    string `json:"principal"`
	Unlocked     string `json:"unlocked"`
	Locked       string `json:"locked"`
	UnlockHeight uint64 `json:"unlock_height"`
	Nonce        uint64 `json:"nonce"`
}

func runBalance(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	n, err := setup(fs, args)
	if err != nil {
		return err
	}
	defer n.Close()

	if fs.NArg() != 1 {
		return errors.New("balance takes exactly one principal")
	}
	p, err := types.ParsePrincipal(fs.Arg(0))
	if err != nil {
		return err
	}
	var account *state.Account
	if err := n.cs.View(func(m *state.Manager) error {
		account, err = m.GetAccount(p)
		return err
	}); err != nil {
		return err
	}
	return printJSON(stdout, accountOutput{
		Principal:    p.String(),
		Unlocked:     u128.String(account.Balance.AmountUnlocked),
		Locked:       u128.String(account.Balance.AmountLocked),
		UnlockHeight: account.Balance.UnlockHeight,
		Nonce:        account.Nonce,
	})
}

type scheduleOutput struct {
	Address    string `json:"address"`
	Miner      bool   `json:"miner"`
	VtxIndex   uint32 `json:"vtxindex"`
	Coinbase   string `json:"coinbase"`
	CommitBurn uint64 `json:"commit_burn"`
}

func runRewards(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("rewards", flag.ContinueOnError)
	height := fs.Uint64("height", 0, "Block height whose schedule to list")
	n, err := setup(fs, args)
	if err != nil {
		return err
	}
	defer n.Close()

	tip, err := n.cs.Tip()
	if err != nil {
		return err
	}
	out := []scheduleOutput{}
	if tip != nil {
		engine := n.cs.Engine()
		rows, err := engine.GetScheduledBlockRewardsInForkAtHeight(engine.Store(), tip, *height)
		if err != nil {
			return err
		}
		for _, row := range rows {
			out = append(out, scheduleOutput{
				Address:    row.Address.String(),
				Miner:      row.Miner,
				VtxIndex:   row.VtxIndex,
				Coinbase:   u128.String(row.Coinbase),
				CommitBurn: row.BurnchainCommitBurn,
			})
		}
	}
	return printJSON(stdout, out)
}

func runEvents(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	from := fs.Uint64("from", 0, "Lowest block height to include")
	limit := fs.Int("limit", 100, "Maximum number of events; 0 for all")
	n, err := setup(fs, args)
	if err != nil {
		return err
	}
	defer n.Close()

	evts, err := n.journal.List(*from, *limit)
	if err != nil {
		return err
	}
	if evts == nil {
		evts = []types.Event{}
	}
	return printJSON(stdout, evts)
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("listen", "", "Listen address; defaults to MetricsAddress from the config")
	n, err := setup(fs, args)
	if err != nil {
		return err
	}
	defer n.Close()

	addr := strings.TrimSpace(*listen)
	if addr == "" {
		addr = n.cfg.MetricsAddress
	}
	if n.cfg.Telemetry.Traces {
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName: "settlectl",
			Environment: n.cfg.Network,
			Endpoint:    n.cfg.Telemetry.Endpoint,
			Insecure:    n.cfg.Telemetry.Insecure,
			Headers:     telemetry.ParseHeaders(n.cfg.Telemetry.Headers),
		})
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				n.log.Warn("telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}
	obs := middleware.NewObservability(middleware.ObservabilityConfig{ServiceName: "settlectl", Enabled: true, LogRequests: true}, n.log)
	handler, err := routes.New(routes.Config{Chainstate: n.cs, Journal: n.journal, Observability: obs, Logger: n.log})
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	serveErr := make(chan error, 1)
	go func() {
		n.log.Info("query api listening", slog.String("address", listener.Addr().String()))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		n.log.Warn("graceful shutdown failed", slog.Any("error", err))
	}
	return nil
}

type keyOutput struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key"`
}

func runKeygen(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	network := fs.String("network", config.NetworkTestnet, "Network the address belongs to (mainnet|testnet)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	var prefix crypto.AddressPrefix
	switch strings.ToLower(strings.TrimSpace(*network)) {
	case config.NetworkMainnet:
		prefix = crypto.MainnetPrefix
	case config.NetworkTestnet:
		prefix = crypto.TestnetPrefix
	default:
		return fmt.Errorf("unknown network %q", *network)
	}
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}
	return printJSON(stdout, keyOutput{
		Address:    kp.Address(prefix).String(),
		PrivateKey: hex.EncodeToString(kp.Secret()),
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
