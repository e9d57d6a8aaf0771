package rewards

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"github.com/holiman/uint256"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"settlechain/core/invariant"
	"settlechain/core/types"
	"settlechain/core/u128"
	"settlechain/crypto"
)

// ErrParse is returned when a stored row cannot be decoded.
var ErrParse = errors.New("rewards: malformed payment row")

// ErrSupporterVtxIndex is returned when a burn supporter claims vtxindex 0,
// which belongs to the miner row.
var ErrSupporterVtxIndex = errors.New("rewards: supporter vtxindex must be at least 1")

// paymentRow mirrors the payments table. Wide integers are kept as decimal
// text so that no engine loses precision on u128 values.
type paymentRow struct {
	ID                     uint64 `gorm:"primaryKey;autoIncrement"`
	Address                string `gorm:"not null"`
	BlockHash              string `gorm:"size:64;not null;index:idx_payments_block,priority:2"`
	ConsensusHash          string `gorm:"size:40;not null;index:idx_payments_block,priority:1"`
	ParentBlockHash        string `gorm:"size:64;not null"`
	ParentConsensusHash    string `gorm:"size:40;not null"`
	Coinbase               string `gorm:"not null"`
	TxFeesAnchored         string `gorm:"not null"`
	TxFeesStreamed         string `gorm:"not null"`
	StxBurns               string `gorm:"not null"`
	BurnchainCommitBurn    int64  `gorm:"not null"`
	BurnchainSortitionBurn int64  `gorm:"not null"`
	Fill                   string `gorm:"not null"`
	StacksBlockHeight      int64  `gorm:"not null;index"`
	Miner                  bool   `gorm:"not null"`
	Vtxindex               uint32 `gorm:"column:vtxindex;not null"`
	IndexBlockHash         string `gorm:"size:64;not null;index"`
}

func (paymentRow) TableName() string { return "payments" }

// headerRow records accepted headers so forks can be walked by parent link.
type headerRow struct {
	IndexBlockHash      string `gorm:"size:64;primaryKey"`
	BlockHash           string `gorm:"size:64;not null"`
	ConsensusHash       string `gorm:"size:40;not null"`
	ParentBlockHash     string `gorm:"size:64;not null"`
	ParentConsensusHash string `gorm:"size:40;not null"`
	ParentIndexHash     string `gorm:"size:64;not null;index"`
	BlockHeight         int64  `gorm:"not null;index"`
	BurnHeaderHeight    int64  `gorm:"not null"`
}

func (headerRow) TableName() string { return "block_headers" }

// Store persists payment schedules and the header ancestry they hang off.
type Store struct {
	db *gorm.DB
}

// OpenStore connects to dsn. DSNs starting with postgres:// or
// postgresql:// use postgres; anything else is a sqlite path or URI.
func OpenStore(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("rewards: payments dsn must not be empty")
	}
	var dialector gorm.Dialector
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("rewards: open payments store: %w", err)
	}
	return NewStore(db)
}

// NewStore wraps an open gorm handle and migrates the schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("rewards: database handle must not be nil")
	}
	if err := db.AutoMigrate(&paymentRow{}, &headerRow{}); err != nil {
		return nil, fmt.Errorf("rewards: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn against a store bound to one database transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func sqlInt(v uint64, what string) int64 {
	invariant.Check(v < math.MaxInt64, "%s %d does not fit in a SQL integer", what, v)
	return int64(v)
}

func newPaymentRow(s *MinerPaymentSchedule) paymentRow {
	return paymentRow{
		Address:                s.Address.String(),
		BlockHash:              s.BlockHash.String(),
		ConsensusHash:          s.ConsensusHash.String(),
		ParentBlockHash:        s.ParentBlockHash.String(),
		ParentConsensusHash:    s.ParentConsensusHash.String(),
		Coinbase:               u128.String(s.Coinbase),
		TxFeesAnchored:         u128.String(s.TxFeesAnchored),
		TxFeesStreamed:         u128.String(s.TxFeesStreamed),
		StxBurns:               u128.String(s.StxBurns),
		BurnchainCommitBurn:    sqlInt(s.BurnchainCommitBurn, "commit burn"),
		BurnchainSortitionBurn: sqlInt(s.BurnchainSortitionBurn, "sortition burn"),
		Fill:                   strconv.FormatUint(s.Fill, 10),
		StacksBlockHeight:      sqlInt(s.StacksBlockHeight, "block height"),
		Miner:                  s.Miner,
		Vtxindex:               s.VtxIndex,
		IndexBlockHash:         s.IndexBlockHash().Hex(),
	}
}

func parseU128Column(name, text string) (*uint256.Int, error) {
	v, err := u128.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: column %s: %v", ErrParse, name, err)
	}
	return v, nil
}

func (r *paymentRow) decode() (*MinerPaymentSchedule, error) {
	addr, err := crypto.DecodeAddress(r.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: column address: %v", ErrParse, err)
	}
	out := &MinerPaymentSchedule{
		Address:                addr,
		BurnchainCommitBurn:    uint64(r.BurnchainCommitBurn),
		BurnchainSortitionBurn: uint64(r.BurnchainSortitionBurn),
		Miner:                  r.Miner,
		StacksBlockHeight:      uint64(r.StacksBlockHeight),
		VtxIndex:               r.Vtxindex,
	}
	if out.BlockHash, err = types.ParseBlockHeaderHash(r.BlockHash); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if out.ConsensusHash, err = types.ParseConsensusHash(r.ConsensusHash); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if out.ParentBlockHash, err = types.ParseBlockHeaderHash(r.ParentBlockHash); err != nil {
		return nil, fmt.Errorf("%w: parent %v", ErrParse, err)
	}
	if out.ParentConsensusHash, err = types.ParseConsensusHash(r.ParentConsensusHash); err != nil {
		return nil, fmt.Errorf("%w: parent %v", ErrParse, err)
	}
	if out.Coinbase, err = parseU128Column("coinbase", r.Coinbase); err != nil {
		return nil, err
	}
	if out.TxFeesAnchored, err = parseU128Column("tx_fees_anchored", r.TxFeesAnchored); err != nil {
		return nil, err
	}
	if out.TxFeesStreamed, err = parseU128Column("tx_fees_streamed", r.TxFeesStreamed); err != nil {
		return nil, err
	}
	if out.StxBurns, err = parseU128Column("stx_burns", r.StxBurns); err != nil {
		return nil, err
	}
	if out.Fill, err = strconv.ParseUint(r.Fill, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: column fill: %v", ErrParse, err)
	}
	return out, nil
}

func decodeRows(rows []paymentRow) ([]*MinerPaymentSchedule, error) {
	out := make([]*MinerPaymentSchedule, 0, len(rows))
	for i := range rows {
		sched, err := rows[i].decode()
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, nil
}

// InsertMinerPaymentSchedule writes the miner row and one row per supporter
// in a single transaction. Supporter rows share the block's coinbase,
// sortition burn and fill, carry their own commit burn, and have zero fees.
func (s *Store) InsertMinerPaymentSchedule(reward *MinerPaymentSchedule, supports []UserBurnSupport) error {
	if reward == nil {
		return fmt.Errorf("rewards: payment schedule must not be nil")
	}
	miner := *reward
	miner.Miner = true
	miner.VtxIndex = 0
	rows := []paymentRow{newPaymentRow(&miner)}
	for _, support := range supports {
		if support.VtxIndex == 0 {
			return fmt.Errorf("%w: %s", ErrSupporterVtxIndex, support.Address)
		}
		user := miner
		user.Address = support.Address
		user.TxFeesAnchored = u128.Zero()
		user.TxFeesStreamed = u128.Zero()
		user.StxBurns = u128.Zero()
		user.BurnchainCommitBurn = support.BurnAmount
		user.Miner = false
		user.VtxIndex = support.VtxIndex
		rows = append(rows, newPaymentRow(&user))
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rows).Error
	})
}

// PaymentsForBlock returns every row scheduled by the given block, ordered by
// vtxindex.
func (s *Store) PaymentsForBlock(consensus types.ConsensusHash, block types.BlockHeaderHash) ([]*MinerPaymentSchedule, error) {
	var rows []paymentRow
	err := s.db.
		Where("block_hash = ? AND consensus_hash = ?", block.String(), consensus.String()).
		Order("vtxindex ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return decodeRows(rows)
}

// GetMinerInfo returns the miner row of a block, or nil when the block
// scheduled nothing. Two miner rows for one block is an impossible state.
func (s *Store) GetMinerInfo(consensus types.ConsensusHash, block types.BlockHeaderHash) (*MinerPaymentSchedule, error) {
	var rows []paymentRow
	err := s.db.
		Where("consensus_hash = ? AND block_hash = ? AND miner = ?", consensus.String(), block.String(), true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, nil
	case 1:
		return rows[0].decode()
	default:
		invariant.Failf("multiple miners for %s/%s", consensus, block)
		return nil, nil
	}
}

// PutHeader records an accepted header.
func (s *Store) PutHeader(h *types.HeaderInfo) error {
	row := headerRow{
		IndexBlockHash:      h.IndexHash().Hex(),
		BlockHash:           h.BlockHash.String(),
		ConsensusHash:       h.ConsensusHash.String(),
		ParentBlockHash:     h.ParentBlockHash.String(),
		ParentConsensusHash: h.ParentConsensusHash.String(),
		ParentIndexHash:     h.ParentIndexHash().Hex(),
		BlockHeight:         sqlInt(h.BlockHeight, "block height"),
		BurnHeaderHeight:    sqlInt(h.BurnHeaderHeight, "burn header height"),
	}
	return s.db.Create(&row).Error
}

// Header returns the header with the given index hash, or nil.
func (s *Store) Header(index common.Hash) (*types.HeaderInfo, error) {
	var rows []headerRow
	if err := s.db.Where("index_block_hash = ?", index.Hex()).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].decode()
}

// CanonicalTip returns the highest recorded header, or nil on an empty store.
// Ties between same-height forks resolve to the lowest index hash.
func (s *Store) CanonicalTip() (*types.HeaderInfo, error) {
	var rows []headerRow
	if err := s.db.Order("block_height DESC").Order("index_block_hash ASC").Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].decode()
}

func (r *headerRow) decode() (*types.HeaderInfo, error) {
	var err error
	out := &types.HeaderInfo{
		BlockHeight:      uint64(r.BlockHeight),
		BurnHeaderHeight: uint64(r.BurnHeaderHeight),
	}
	if out.BlockHash, err = types.ParseBlockHeaderHash(r.BlockHash); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if out.ConsensusHash, err = types.ParseConsensusHash(r.ConsensusHash); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if out.ParentBlockHash, err = types.ParseBlockHeaderHash(r.ParentBlockHash); err != nil {
		return nil, fmt.Errorf("%w: parent %v", ErrParse, err)
	}
	if out.ParentConsensusHash, err = types.ParseConsensusHash(r.ParentConsensusHash); err != nil {
		return nil, fmt.Errorf("%w: parent %v", ErrParse, err)
	}
	if got := out.IndexHash().Hex(); !strings.EqualFold(got, r.IndexBlockHash) {
		return nil, fmt.Errorf("%w: header index %s does not match contents %s", ErrParse, r.IndexBlockHash, got)
	}
	return out, nil
}
