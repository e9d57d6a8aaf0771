package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"settlechain/core/chainstate"
	"settlechain/core/events"
	"settlechain/core/rewards"
	"settlechain/core/state"
	"settlechain/core/types"
	"settlechain/core/u128"
	"settlechain/gateway/middleware"
	vmerrors "settlechain/vm/errors"
	"settlechain/vm/functions"
	"settlechain/vm/values"
)

const defaultEventLimit = 100

// Config wires the read-only query API.
type Config struct {
	Chainstate    *chainstate.Chainstate
	Journal       *events.Journal
	Observability *middleware.Observability
	Logger        *slog.Logger
}

type server struct {
	cs      *chainstate.Chainstate
	journal *events.Journal
	log     *slog.Logger
}

// New builds the router.
func New(cfg Config) (http.Handler, error) {
	if cfg.Chainstate == nil {
		return nil, fmt.Errorf("routes: chainstate must not be nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &server{cs: cfg.Chainstate, journal: cfg.Journal, log: logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware("root"))
		r.Handle("/metrics", obs.MetricsHandler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/v1", func(api chi.Router) {
		api.Get("/tip", s.getTip)
		api.Get("/accounts/{principal}", s.getAccount)
		api.Get("/rewards/scheduled/{height}", s.getScheduledRewards)
		api.Get("/tokens/{contract}/{asset}/supply", s.getTokenSupply)
		api.Get("/tokens/{contract}/{asset}/balances/{principal}", s.getTokenBalance)
		api.Get("/events", s.listEvents)
	})
	return r, nil
}

type headerJSON struct {
	BlockHash      string `json:"block_hash"`
	ConsensusHash  string `json:"consensus_hash"`
	IndexBlockHash string `json:"index_block_hash"`
	Height         uint64 `json:"height"`
	BurnHeight     uint64 `json:"burn_height"`
	StateRoot      string `json:"state_root"`
}

type accountJSON struct {
	Principal    string `json:"principal"`
	Unlocked     string `json:"unlocked"`
	Locked       string `json:"locked"`
	UnlockHeight uint64 `json:"unlock_height"`
	Nonce        uint64 `json:"nonce"`
}

type scheduleJSON struct {
	Address     string `json:"address"`
	Miner       bool   `json:"miner"`
	VtxIndex    uint32 `json:"vtxindex"`
	Coinbase    string `json:"coinbase"`
	CommitBurn  uint64 `json:"commit_burn"`
	BlockHash   string `json:"block_hash"`
	Consensus   string `json:"consensus_hash"`
	BlockHeight uint64 `json:"block_height"`
}

func (s *server) getTip(w http.ResponseWriter, r *http.Request) {
	tip, err := s.cs.Tip()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if tip == nil {
		s.fail(w, http.StatusNotFound, errors.New("no blocks"))
		return
	}
	out := headerJSON{
		BlockHash:      tip.BlockHash.String(),
		ConsensusHash:  tip.ConsensusHash.String(),
		IndexBlockHash: tip.IndexHash().Hex(),
		Height:         tip.BlockHeight,
		BurnHeight:     tip.BurnHeaderHeight,
	}
	if root, err := s.cs.StateRootAt(tip.IndexHash()); err == nil {
		out.StateRoot = root.Hex()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) getAccount(w http.ResponseWriter, r *http.Request) {
	p, err := types.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	var account *state.Account
	if err := s.cs.View(func(m *state.Manager) error {
		var err error
		account, err = m.GetAccount(p)
		return err
	}); err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, accountJSON{
		Principal:    p.String(),
		Unlocked:     u128.String(account.Balance.AmountUnlocked),
		Locked:       u128.String(account.Balance.AmountLocked),
		UnlockHeight: account.Balance.UnlockHeight,
		Nonce:        account.Nonce,
	})
}

func (s *server) getScheduledRewards(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(chi.URLParam(r, "height"), 10, 64)
	if err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid height: %w", err))
		return
	}
	tip, err := s.cs.Tip()
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	out := []scheduleJSON{}
	if tip != nil {
		engine := s.cs.Engine()
		rows, err := engine.GetScheduledBlockRewardsInForkAtHeight(engine.Store(), tip, height)
		if err != nil {
			s.fail(w, http.StatusInternalServerError, err)
			return
		}
		out = scheduleRows(rows)
	}
	writeJSON(w, http.StatusOK, out)
}

func scheduleRows(rows []*rewards.MinerPaymentSchedule) []scheduleJSON {
	out := make([]scheduleJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, scheduleJSON{
			Address:     row.Address.String(),
			Miner:       row.Miner,
			VtxIndex:    row.VtxIndex,
			Coinbase:    u128.String(row.Coinbase),
			CommitBurn:  row.BurnchainCommitBurn,
			BlockHash:   row.BlockHash.String(),
			Consensus:   row.ConsensusHash.String(),
			BlockHeight: row.StacksBlockHeight,
		})
	}
	return out
}

func (s *server) getTokenSupply(w http.ResponseWriter, r *http.Request) {
	s.callToken(w, r, "ft-get-supply")
}

func (s *server) getTokenBalance(w http.ResponseWriter, r *http.Request) {
	owner, err := types.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}
	s.callToken(w, r, "ft-get-balance", values.Principal{Principal: owner})
}

// callToken evaluates a read-only token function with no transaction sender.
func (s *server) callToken(w http.ResponseWriter, r *http.Request, name string, args ...values.Value) {
	contract, err := types.ParsePrincipal(chi.URLParam(r, "contract"))
	if err != nil || !contract.IsContract() {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid contract %q", chi.URLParam(r, "contract")))
		return
	}
	var result values.Value
	err = s.cs.View(func(m *state.Manager) error {
		env := functions.NewEnvironment(m, contract, nil)
		env.Log = s.log
		var err error
		result, err = functions.Call(env, name, chi.URLParam(r, "asset"), args...)
		return err
	})
	switch {
	case errors.Is(err, vmerrors.ErrBadTokenName):
		s.fail(w, http.StatusNotFound, err)
		return
	case err != nil:
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	amount, ok := result.(values.UInt)
	if !ok {
		s.fail(w, http.StatusInternalServerError, fmt.Errorf("unexpected result %s", result))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": u128.String(amount.V)})
}

func (s *server) listEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		s.fail(w, http.StatusNotFound, errors.New("event journal disabled"))
		return
	}
	var from uint64
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid from: %w", err))
			return
		}
		from = parsed
	}
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	evts, err := s.journal.List(from, limit)
	if err != nil {
		s.fail(w, http.StatusInternalServerError, err)
		return
	}
	if evts == nil {
		evts = []types.Event{}
	}
	writeJSON(w, http.StatusOK, evts)
}

func (s *server) fail(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("query failed", slog.Any("error", err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
