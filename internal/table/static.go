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
	"fmt"

	"go.uber.org/zap"
)

// staticBackend keeps an insertion-ordered entry list in memory. Opening
// is an identity operation: the backend is its own handle.
type staticBackend struct {
	entries []Entry
}

func init() {
	RegisterBackend("static", func() Backend { return &staticBackend{} })
}

func (b *staticBackend) Services() ServiceKind {
	return ServiceAlias | ServiceVirtual | ServiceCredentials | ServiceNetAddr
}

func (b *staticBackend) Config(tbl *Table, source string) error {
	// no config is fine
	if source == "" {
		return nil
	}

	entries, err := ParseSource(source)
	if err != nil {
		return err
	}
	b.entries = entries
	return nil
}

func (b *staticBackend) Open(tbl *Table) (Handle, error) {
	return b, nil
}

// Update builds a fully independent replacement from the new source and
// exchanges content with it, so that the live table keeps its name and
// id while the object left holding the stale entries is discarded. A
// handle captured before the exchange keeps reading the old entries.
func (b *staticBackend) Update(tbl *Table, source string) error {
	name := tbl.Name

	if source != "" {
		repl, err := New(tbl.Source, name+"~", source, tbl.log)
		if err != nil {
			tbl.log.Info("failed to update table",
				zap.String("table", name), zap.Error(err))
			return err
		}

		tbl.backend, repl.backend = repl.backend, tbl.backend
		if tbl.handle != nil {
			_ = tbl.handle.Close()
			h, err := tbl.backend.Open(tbl)
			if err != nil {
				return fmt.Errorf("table %q: %w", name, err)
			}
			tbl.handle = h
		}
	}

	tbl.log.Info("table updated", zap.String("table", name))
	return nil
}

func (b *staticBackend) Lookup(ctx context.Context, key string, kind ServiceKind) (Record, bool, error) {
	for i := range b.entries {
		if b.entries[i].Key != key {
			continue
		}
		rec, err := decodeValue(key, b.entries[i].Value, kind)
		if err != nil {
			return nil, false, err
		}
		return rec, true, nil
	}
	return nil, false, nil
}

func (b *staticBackend) Compare(ctx context.Context, key string, kind ServiceKind, match MatchFunc) (bool, error) {
	for i := range b.entries {
		if match(key, b.entries[i].Key) {
			return true, nil
		}
	}
	return false, nil
}

func (b *staticBackend) Close() error {
	return nil
}
