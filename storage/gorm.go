package storage

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Layer-V/otc-rfq/domain"
	"github.com/Layer-V/otc-rfq/mmperf"
	"github.com/Layer-V/otc-rfq/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DURABLE STORAGE (gorm / sqlite)
// ═══════════════════════════════════════════════════════════════════════════════

// eventRow is the event-store table model.
type eventRow struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	EventID     string `gorm:"uniqueIndex;size:36"`
	RfqID       string `gorm:"index;size:36"`
	EventType   string `gorm:"index;size:16"`
	EventName   string `gorm:"size:64"`
	TimestampMs int64  `gorm:"index"`
	Payload     string
	Sequence    uint64
}

func (eventRow) TableName() string { return "events" }

// mmEventRow is the MM performance event table model.
type mmEventRow struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	MmID           string `gorm:"index;size:64"`
	Kind           uint8
	ResponseTimeMs uint64
	Rank           uint64 `gorm:"column:quote_rank"`
	TimestampNs    int64  `gorm:"index"`
}

func (mmEventRow) TableName() string { return "mm_events" }

// OpenDatabase opens the configured database and migrates the schema. A
// postgres:// DSN selects postgres; anything else is a local sqlite path.
func OpenDatabase(dsn string) (*gorm.DB, error) {
	dialector := sqlite.Open(dsn)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&eventRow{}, &mmEventRow{}); err != nil {
		return nil, err
	}
	log.Info().Str("dsn", dsn).Msg("Database connected")
	return db, nil
}

// GormEventStore is the durable EventStore.
type GormEventStore struct {
	db *gorm.DB

	// Per-RFQ sequence allocation must be atomic under concurrent appends.
	mu        sync.Mutex
	sequences map[types.RfqID]uint64
}

// NewGormEventStore builds a store over an open database, loading current
// sequence heads.
func NewGormEventStore(db *gorm.DB) (*GormEventStore, error) {
	store := &GormEventStore{db: db, sequences: make(map[types.RfqID]uint64)}

	type seqRow struct {
		RfqID string
		Max   uint64
	}
	var rows []seqRow
	err := db.Model(&eventRow{}).
		Select("rfq_id, MAX(sequence) AS max").
		Where("rfq_id <> ''").
		Group("rfq_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		id, err := types.ParseRfqID(row.RfqID)
		if err != nil {
			continue
		}
		store.sequences[id] = row.Max
	}
	return store, nil
}

// Append implements EventStore.
func (s *GormEventStore) Append(ctx context.Context, event StoredEvent) (StoredEvent, error) {
	row := eventRow{
		EventID:     event.EventID.String(),
		EventType:   string(event.EventType),
		EventName:   event.EventName,
		TimestampMs: event.TimestampMs,
		Payload:     string(event.Payload),
	}

	if event.RfqID != nil {
		s.mu.Lock()
		s.sequences[*event.RfqID]++
		event.Sequence = s.sequences[*event.RfqID]
		s.mu.Unlock()
		row.RfqID = event.RfqID.String()
		row.Sequence = event.Sequence
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return StoredEvent{}, err
	}
	return event, nil
}

func rowToStored(row eventRow) StoredEvent {
	stored := StoredEvent{
		EventType:   domain.EventType(row.EventType),
		EventName:   row.EventName,
		TimestampMs: row.TimestampMs,
		Payload:     json.RawMessage(row.Payload),
		Sequence:    row.Sequence,
	}
	if id, err := types.ParseRfqID(row.RfqID); err == nil && row.RfqID != "" {
		stored.RfqID = &id
	}
	if eid, err := types.ParseEventID(row.EventID); err == nil {
		stored.EventID = eid
	}
	return stored
}

// GetEvents implements EventStore.
func (s *GormEventStore) GetEvents(ctx context.Context, rfqID types.RfqID) ([]StoredEvent, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Where("rfq_id = ?", rfqID.String()).
		Order("sequence ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]StoredEvent, len(rows))
	for i, row := range rows {
		out[i] = rowToStored(row)
	}
	return out, nil
}

// GetEventsSince implements EventStore.
func (s *GormEventStore) GetEventsSince(ctx context.Context, since types.Timestamp) ([]StoredEvent, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Where("timestamp_ms >= ?", since.UnixMillis()).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]StoredEvent, len(rows))
	for i, row := range rows {
		out[i] = rowToStored(row)
	}
	return out, nil
}

// GetEventsByType implements EventStore.
func (s *GormEventStore) GetEventsByType(ctx context.Context, eventType domain.EventType) ([]StoredEvent, error) {
	var rows []eventRow
	err := s.db.WithContext(ctx).
		Where("event_type = ?", string(eventType)).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]StoredEvent, len(rows))
	for i, row := range rows {
		out[i] = rowToStored(row)
	}
	return out, nil
}

// NextSequence implements EventStore.
func (s *GormEventStore) NextSequence(_ context.Context, rfqID types.RfqID) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sequences[rfqID] + 1, nil
}

// GormMmRepository is the durable mmperf.Repository.
type GormMmRepository struct {
	db *gorm.DB
}

var _ mmperf.Repository = (*GormMmRepository)(nil)

// NewGormMmRepository builds a repository over an open database.
func NewGormMmRepository(db *gorm.DB) *GormMmRepository {
	return &GormMmRepository{db: db}
}

// RecordEvent implements mmperf.Repository.
func (r *GormMmRepository) RecordEvent(ctx context.Context, event domain.MmPerformanceEvent) error {
	row := mmEventRow{
		MmID:           event.MmID.String(),
		Kind:           uint8(event.Kind),
		ResponseTimeMs: event.ResponseTimeMs,
		Rank:           event.Rank,
		TimestampNs:    event.Timestamp.UnixNanos(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// GetEvents implements mmperf.Repository.
func (r *GormMmRepository) GetEvents(ctx context.Context, mmID types.CounterpartyID, from, to types.Timestamp) ([]domain.MmPerformanceEvent, error) {
	var rows []mmEventRow
	err := r.db.WithContext(ctx).
		Where("mm_id = ? AND timestamp_ns >= ? AND timestamp_ns <= ?",
			mmID.String(), from.UnixNanos(), to.UnixNanos()).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.MmPerformanceEvent, len(rows))
	for i, row := range rows {
		out[i] = domain.MmPerformanceEvent{
			MmID:           types.CounterpartyID(row.MmID),
			Kind:           domain.MmEventKind(row.Kind),
			ResponseTimeMs: row.ResponseTimeMs,
			Rank:           row.Rank,
			Timestamp:      types.FromUnixNanos(row.TimestampNs),
		}
	}
	return out, nil
}

// GetAllMmIDs implements mmperf.Repository.
func (r *GormMmRepository) GetAllMmIDs(ctx context.Context) ([]types.CounterpartyID, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&mmEventRow{}).
		Distinct("mm_id").
		Pluck("mm_id", &ids).Error
	if err != nil {
		return nil, err
	}

	out := make([]types.CounterpartyID, len(ids))
	for i, id := range ids {
		out[i] = types.CounterpartyID(id)
	}
	return out, nil
}

// TrimBefore implements mmperf.Repository.
func (r *GormMmRepository) TrimBefore(ctx context.Context, cutoff types.Timestamp) (uint64, error) {
	result := r.db.WithContext(ctx).
		Where("timestamp_ns < ?", cutoff.UnixNanos()).
		Delete(&mmEventRow{})
	if result.Error != nil {
		return 0, result.Error
	}
	return uint64(result.RowsAffected), nil
}
