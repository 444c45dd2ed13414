package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"shareminder/internal/domain/entity"
	"shareminder/internal/domain/repository"
)

// Blob names for the two persisted collections.
const (
	blobReminders = "reminders"
	blobBindings  = "bindings"
)

// blobRecord is a named JSON blob. The store keeps exactly two rows, one
// per collection; reads and writes always cover the whole collection.
type blobRecord struct {
	Name string `gorm:"primaryKey;column:name"`
	Body []byte `gorm:"column:body"`
}

// TableName specifies the table name for blobRecord.
func (blobRecord) TableName() string {
	return "blobs"
}

type blobStore struct {
	db *gorm.DB
}

// NewStore creates a Store backed by the blobs table of the given database.
func NewStore(db *gorm.DB) repository.Store {
	return &blobStore{db: db}
}

// Load reads both collection blobs and decodes them into a snapshot.
// Missing rows decode to empty collections so a fresh database is usable
// without seeding.
func (s *blobStore) Load(ctx context.Context) (*entity.Snapshot, error) {
	snap := entity.NewSnapshot()

	remBody, err := s.readBlob(ctx, blobReminders)
	if err != nil {
		return nil, err
	}
	if remBody != nil {
		if err := json.Unmarshal(remBody, &snap.Reminders); err != nil {
			return nil, fmt.Errorf("failed to decode reminder collection: %w", err)
		}
	}

	bindBody, err := s.readBlob(ctx, blobBindings)
	if err != nil {
		return nil, err
	}
	if bindBody != nil {
		if err := json.Unmarshal(bindBody, &snap.Bindings); err != nil {
			return nil, fmt.Errorf("failed to decode binding map: %w", err)
		}
	}
	if snap.Bindings == nil {
		snap.Bindings = make(map[string]string)
	}
	return snap, nil
}

// Save encodes the snapshot and upserts both blobs in a single transaction,
// so a crash never leaves one collection newer than the other.
func (s *blobStore) Save(ctx context.Context, snap *entity.Snapshot) error {
	remBody, err := json.Marshal(snap.Reminders)
	if err != nil {
		return fmt.Errorf("failed to encode reminder collection: %w", err)
	}
	bindBody, err := json.Marshal(snap.Bindings)
	if err != nil {
		return fmt.Errorf("failed to encode binding map: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rec := range []blobRecord{
			{Name: blobReminders, Body: remBody},
			{Name: blobBindings, Body: bindBody},
		} {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.AssignmentColumns([]string{"body"}),
			}).Create(&rec).Error; err != nil {
				return fmt.Errorf("failed to write blob %s: %w", rec.Name, err)
			}
		}
		return nil
	})
}

func (s *blobStore) readBlob(ctx context.Context, name string) ([]byte, error) {
	var rec blobRecord
	if err := s.db.WithContext(ctx).First(&rec, "name = ?", name).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
	}
	return rec.Body, nil
}
