package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"settlechain/config"
	"settlechain/core/chainstate"
	"settlechain/core/events"
	"settlechain/core/rewards"
	"settlechain/observability"
	"settlechain/observability/logging"
	"settlechain/storage"
)

// node bundles the handles every subcommand needs.
type node struct {
	cfg     *config.Config
	db      storage.Database
	store   *rewards.Store
	journal *events.Journal
	cs      *chainstate.Chainstate
	log     *slog.Logger
}

func openNode(cfg *config.Config, logger *slog.Logger) (*node, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	n := &node{cfg: cfg, log: logger}

	db, err := storage.NewLevelDB(cfg.StateDir())
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	n.db = db

	logger.Info("opening payments store", slog.String("payments_dsn", logging.MaskDSN(cfg.PaymentsStore())))
	store, err := rewards.OpenStore(cfg.PaymentsStore())
	if err != nil {
		n.Close()
		return nil, err
	}
	n.store = store

	engine, err := rewards.NewEngine(cfg.RewardsConfig(), store, rewards.NewHeaderAncestry(store), logger)
	if err != nil {
		n.Close()
		return nil, err
	}

	journal, err := events.OpenJournal(cfg.JournalPath(), nil)
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("open event journal: %w", err)
	}
	n.journal = journal

	cs, err := chainstate.Open(db, engine)
	if err != nil {
		n.Close()
		return nil, err
	}
	cs.SetLogger(logger)
	cs.SetJournal(journal)
	cs.SetMetrics(observability.Settlement())
	n.cs = cs
	return n, nil
}

func (n *node) Close() {
	var errs []error
	if n.journal != nil {
		errs = append(errs, n.journal.Close())
	}
	if n.store != nil {
		errs = append(errs, n.store.Close())
	}
	if n.db != nil {
		n.db.Close()
	}
	if err := errors.Join(errs...); err != nil {
		n.log.Warn("close node", slog.Any("error", err))
	}
}
