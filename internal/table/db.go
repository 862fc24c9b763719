/*
Kestrel Mail Server - Lightweight mail transfer agent.
Copyright 2024, Kestrel Mail Server contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package table

import (
	"context"
	"errors"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// DBBucket is the bucket holding table records inside an indexed store
// file. The builder tool writes it; this backend only ever reads it.
var DBBucket = []byte("table")

// dbBackend serves lookups from a pre-built on-disk key/value store. The
// store is opened read-only and never written through this backend.
type dbBackend struct {
	path string
}

func init() {
	RegisterBackend("db", func() Backend { return &dbBackend{} })
}

func (b *dbBackend) Services() ServiceKind {
	return ServiceAlias | ServiceVirtual | ServiceCredentials | ServiceNetAddr
}

func (b *dbBackend) Config(tbl *Table, source string) error {
	// source is the store path, consumed at open time
	b.path = source
	return nil
}

func (b *dbBackend) Update(tbl *Table, source string) error {
	// nothing is held in memory; lookups always read the store directly
	tbl.log.Info("table updated", zap.String("table", tbl.Name))
	return nil
}

var errMissingBucket = errors.New("store has no table bucket")

func (b *dbBackend) Open(tbl *Table) (Handle, error) {
	db, err := bolt.Open(b.path, 0o600, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	err = db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(DBBucket) == nil {
			return errMissingBucket
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &dbHandle{db: db}, nil
}

type dbHandle struct {
	db *bolt.DB
}

func (h *dbHandle) Lookup(ctx context.Context, key string, kind ServiceKind) (Record, bool, error) {
	if len(key) >= MaxLineSize {
		return nil, false, ErrKeyTooLong
	}

	var (
		value string
		found bool
	)
	err := h.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(DBBucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		value = string(v)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	rec, err := decodeValue(key, value, kind)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (h *dbHandle) Compare(ctx context.Context, key string, kind ServiceKind, match MatchFunc) (bool, error) {
	var matched bool
	err := h.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(DBBucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if match(key, string(k)) {
				matched = true
				return nil
			}
		}
		return nil
	})
	return matched, err
}

func (h *dbHandle) Close() error {
	return h.db.Close()
}
