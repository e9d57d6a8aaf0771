package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"settlechain/core/chainstate"
	"settlechain/core/events"
	"settlechain/core/rewards"
	"settlechain/core/types"
	"settlechain/crypto"
	"settlechain/gateway/middleware"
	"settlechain/storage"
)

type fixture struct {
	handler  http.Handler
	cs       *chainstate.Chainstate
	holder   types.Principal
	contract types.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := rewards.OpenStore(filepath.Join(dir, "payments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	engine, err := rewards.NewEngine(rewards.DefaultConfig(), store, rewards.NewHeaderAncestry(store), nil)
	require.NoError(t, err)

	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	cs, err := chainstate.Open(db, engine)
	require.NoError(t, err)

	journal, err := events.OpenJournal(filepath.Join(dir, "events.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })
	cs.SetJournal(journal)

	holder := types.StandardPrincipal(crypto.MustNewAddress(crypto.TestnetPrefix, bytes.Repeat([]byte{0x01}, 20)))
	contract := types.ContractPrincipal(crypto.MustNewAddress(crypto.TestnetPrefix, bytes.Repeat([]byte{0x0c}, 20)), "tokens")
	asset := types.AssetIdentifier{Contract: contract, Name: "gold"}

	genesis := &types.HeaderInfo{BlockHash: types.BlockHeaderHash{0x01}, ConsensusHash: types.ConsensusHash{0x01}}
	_, err = cs.AdvanceTip(nil, chainstate.Block{Header: genesis, Apply: func(l *chainstate.Ledger) error {
		if err := l.AccountCredit(holder, uint256.NewInt(1000)); err != nil {
			return err
		}
		if err := l.State().DefineFungibleToken(asset, nil); err != nil {
			return err
		}
		if err := l.State().CheckedIncreaseTokenSupply(asset, uint256.NewInt(70)); err != nil {
			return err
		}
		return l.State().SetFTBalance(asset, holder, uint256.NewInt(70))
	}})
	require.NoError(t, err)

	obs := middleware.NewObservability(middleware.ObservabilityConfig{Enabled: true}, nil)
	handler, err := New(Config{Chainstate: cs, Journal: journal, Observability: obs})
	require.NoError(t, err)
	return &fixture{handler: handler, cs: cs, holder: holder, contract: contract}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAccountEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/v1/accounts/"+f.holder.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var body accountJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "1000", body.Unlocked)
	require.Equal(t, "0", body.Locked)

	rec = f.get(t, "/v1/accounts/not-a-principal")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTipEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/v1/tip")
	require.Equal(t, http.StatusOK, rec.Code)

	var body headerJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, uint64(0), body.Height)
	require.Equal(t, f.cs.Root().Hex(), body.StateRoot)
}

func TestTokenEndpoints(t *testing.T) {
	f := newFixture(t)
	base := "/v1/tokens/" + f.contract.String() + "/gold"

	rec := f.get(t, base+"/supply")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"amount":"70"`)

	rec = f.get(t, base+"/balances/"+f.holder.String())
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"amount":"70"`)

	rec = f.get(t, "/v1/tokens/"+f.contract.String()+"/silver/supply")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/v1/events?from=0&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var evts []types.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &evts))
	require.Empty(t, evts)

	rec = f.get(t, "/v1/events?limit=-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduledRewardsEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.get(t, "/v1/rewards/scheduled/0")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.get(t, "/healthz").Code)

	rec := f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "settle_api_requests_total")
}
