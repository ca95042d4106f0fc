package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dszwed/wp-blueprints/internal/models"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketBlueprints = []byte("blueprints")
	bucketStatistics = []byte("statistics")
	bucketUsers      = []byte("users")
)

// BoltStore keeps blueprints, statistics and users in a single BoltDB file.
// It backs local development and tests.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketBlueprints, bucketStatistics, bucketUsers} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close releases the database file
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) CreateBlueprint(ctx context.Context, bp *models.Blueprint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketBlueprints)
		if err != nil {
			return err
		}
		if b.Get([]byte(bp.Id)) != nil {
			return fmt.Errorf("blueprint %s: %w", bp.Id, ErrAlreadyExists)
		}
		return putBlueprint(b, bp)
	})
}

func (s *BoltStore) GetBlueprint(ctx context.Context, id string) (*models.Blueprint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var bp *models.Blueprint
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketBlueprints)
		if err != nil {
			return err
		}
		bp, err = getBlueprint(b, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bp, nil
}

// UpdateBlueprint runs mutate inside one read-write transaction, so the
// read and the write cannot interleave with another update.
func (s *BoltStore) UpdateBlueprint(ctx context.Context, id string, mutate MutateFunc) (*models.Blueprint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var saved *models.Blueprint
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketBlueprints)
		if err != nil {
			return err
		}
		current, err := getBlueprint(b, id)
		if err != nil {
			return err
		}
		next, err := mutate(current.Clone())
		if err != nil {
			return err
		}
		next.Id = current.Id
		next.Version = current.Version + 1
		if err := putBlueprint(b, next); err != nil {
			return err
		}
		saved = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *BoltStore) ListBlueprints(ctx context.Context, filter models.BlueprintFilter, page, perPage int) (*models.BlueprintPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var matches []*models.Blueprint
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketBlueprints)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var rec blueprintRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode blueprint %s: %w", k, err)
			}
			bp, err := rec.toModel()
			if err != nil {
				return err
			}
			if filter.Matches(bp) {
				matches = append(matches, bp)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return pageOf(matches, page, perPage), nil
}

func (s *BoltStore) GetStatistics(ctx context.Context, blueprintId string) (*models.BlueprintStatistics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats := &models.BlueprintStatistics{BlueprintId: blueprintId}
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketStatistics)
		if err != nil {
			return err
		}
		data := b.Get([]byte(blueprintId))
		if data == nil {
			return nil
		}
		var rec statisticsRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		stats = rec.toModel()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *BoltStore) RecordEvent(ctx context.Context, blueprintId string, kind models.StatisticKind, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, err := statisticAttributes(kind); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketStatistics)
		if err != nil {
			return err
		}
		current := models.BlueprintStatistics{BlueprintId: blueprintId}
		if data := b.Get([]byte(blueprintId)); data != nil {
			var rec statisticsRecord
			if err := json.Unmarshal(data, &rec); err != nil {
				return err
			}
			current = *rec.toModel()
		}
		next := current.Apply(kind, at.UTC().Truncate(time.Millisecond))
		data, err := json.Marshal(toStatisticsRecord(&next))
		if err != nil {
			return err
		}
		return b.Put([]byte(blueprintId), data)
	})
}

func (s *BoltStore) PutUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketUsers)
		if err != nil {
			return err
		}
		data, err := json.Marshal(toUserRecord(user))
		if err != nil {
			return err
		}
		return b.Put([]byte(user.Id), data)
	})
}

func (s *BoltStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec userRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b, err := bucket(tx, bucketUsers)
		if err != nil {
			return err
		}
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func bucket(tx *bolt.Tx, name []byte) (*bolt.Bucket, error) {
	b := tx.Bucket(name)
	if b == nil {
		return nil, fmt.Errorf("bucket %q not found", name)
	}
	return b, nil
}

func getBlueprint(b *bolt.Bucket, id string) (*models.Blueprint, error) {
	data := b.Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("blueprint %s: %w", id, ErrNotFound)
	}
	var rec blueprintRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode blueprint %s: %w", id, err)
	}
	return rec.toModel()
}

func putBlueprint(b *bolt.Bucket, bp *models.Blueprint) error {
	rec, err := toBlueprintRecord(bp)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return b.Put([]byte(bp.Id), data)
}
