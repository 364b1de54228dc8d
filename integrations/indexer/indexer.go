// Package indexer archives committed ledger events in a SQL database so that
// history survives restarts and can be queried by account.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kaiadefi/core/events"
	"kaiadefi/crypto"
)

// EventRecord is one archived ledger event.
type EventRecord struct {
	ID           uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Sequence     uint64            `gorm:"uniqueIndex;not null" json:"sequence"`
	Type         string            `gorm:"size:64;index;not null" json:"type"`
	Account      string            `gorm:"size:42;index" json:"account,omitempty"`
	Counterparty string            `gorm:"size:42;index" json:"counterparty,omitempty"`
	LedgerTime   uint64            `gorm:"index" json:"ledgerTime"`
	Attributes   map[string]string `gorm:"serializer:json" json:"attributes"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Filter narrows a Query. Zero fields match everything.
type Filter struct {
	Type    string
	Account *crypto.Address
	// After returns records with a sequence strictly greater than the cursor.
	After uint64
	Limit int
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

var ErrUnsupportedDriver = errors.New("indexer: unsupported driver")

// accountKeys lists the attributes naming the acting account, in priority
// order; counterpartyKeys those naming the other side.
var (
	accountKeys      = []string{"user", "borrower", "owner", "from", "operator", "previous"}
	counterpartyKeys = []string{"liquidator", "to", "spender", "next"}
)

// Indexer is an events.Emitter persisting every event it receives.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger

	mu  sync.Mutex
	seq uint64
}

// Open connects to driver ("postgres" or "sqlite") and migrates the schema.
func Open(driver, dsn string, log *slog.Logger) (*Indexer, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open %s: %w", driver, err)
	}
	return New(db, log)
}

// New wraps an open database handle.
func New(db *gorm.DB, log *slog.Logger) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: database required")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := db.AutoMigrate(&EventRecord{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	var last struct{ Max uint64 }
	if err := db.Model(&EventRecord{}).Select("COALESCE(MAX(sequence), 0) AS max").Scan(&last).Error; err != nil {
		return nil, fmt.Errorf("indexer: load cursor: %w", err)
	}
	return &Indexer{db: db, logger: log, seq: last.Max}, nil
}

// Emit implements events.Emitter. Failures are logged; the ledger has already
// committed the change.
func (i *Indexer) Emit(ev events.Event) {
	if i == nil || ev == nil {
		return
	}
	if _, err := i.Record(context.Background(), ev); err != nil {
		i.logger.Error("indexer: persist event failed",
			slog.String("type", ev.EventType()),
			slog.Any("error", err))
	}
}

// Record stores ev and returns the archived row.
func (i *Indexer) Record(ctx context.Context, ev events.Event) (*EventRecord, error) {
	payload := ev.Event()
	if payload == nil {
		return nil, fmt.Errorf("indexer: event %s has no payload", ev.EventType())
	}
	attrs := make(map[string]string, len(payload.Attributes))
	for k, v := range payload.Attributes {
		attrs[k] = v
	}
	record := &EventRecord{
		ID:           uuid.New(),
		Type:         payload.Type,
		Account:      firstAttr(attrs, accountKeys),
		Counterparty: firstAttr(attrs, counterpartyKeys),
		Attributes:   attrs,
	}
	if ts, err := strconv.ParseUint(attrs["timestamp"], 10, 64); err == nil {
		record.LedgerTime = ts
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	record.Sequence = i.seq + 1
	if err := i.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	i.seq = record.Sequence
	return record, nil
}

// Query returns matching records in emission order.
func (i *Indexer) Query(ctx context.Context, filter Filter) ([]EventRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	tx := i.db.WithContext(ctx).Model(&EventRecord{}).Where("sequence > ?", filter.After)
	if t := strings.TrimSpace(filter.Type); t != "" {
		tx = tx.Where("type = ?", t)
	}
	if filter.Account != nil {
		hex := filter.Account.Hex()
		tx = tx.Where("(account = ? OR counterparty = ?)", hex, hex)
	}
	var out []EventRecord
	if err := tx.Order("sequence ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (i *Indexer) Close() error {
	if i == nil || i.db == nil {
		return nil
	}
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func firstAttr(attrs map[string]string, keys []string) string {
	for _, key := range keys {
		if v := attrs[key]; v != "" {
			return v
		}
	}
	return ""
}
