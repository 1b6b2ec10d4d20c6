// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// BadgerCache is an embedded answer cache for single-process deployments.
type BadgerCache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBadger opens an embedded cache at filePath, creating the directory if
// needed. When inMemory is true the path is ignored and nothing touches disk.
func OpenBadger(filePath string, inMemory bool, ttl time.Duration) (*BadgerCache, error) {
	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(filePath, 0755); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(filePath)
	}
	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerCache{
		db:     db,
		ttl:    ttl,
		logger: slog.Default().With("component", "cache"),
	}, nil
}

// Get returns the cached record for the collection and question, or
// (nil, nil) on a miss. Expired entries count as misses.
func (c *BadgerCache) Get(ctx context.Context, collection, question string) (*Record, error) {
	var record *Record
	err := c.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(Key(collection, question))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			record, err = UnmarshalRecord(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return record, nil
}

// Set stores the record under the derived key with the configured TTL.
func (c *BadgerCache) Set(ctx context.Context, collection, question string, record *Record) error {
	err := c.db.Update(func(tx *badger.Txn) error {
		entry := badger.NewEntry(Key(collection, question), MarshalRecord(record))
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return tx.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

var _ AnswerCache = (*BadgerCache)(nil)
