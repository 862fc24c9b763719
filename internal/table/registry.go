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
	"fmt"

	"go.uber.org/zap"
)

// Registry owns the tables of one process. It is not safe for concurrent
// use; the hosting process serializes table operations.
type Registry struct {
	log    *zap.Logger
	tables map[string]*Table
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		log:    logger,
		tables: make(map[string]*Table),
	}
}

// Create builds and registers a table. The table still has to be opened.
func (r *Registry) Create(kind, name, source string) (*Table, error) {
	if _, ok := r.tables[name]; ok {
		return nil, fmt.Errorf("table: table %q already exists", name)
	}
	t, err := New(kind, name, source, r.log)
	if err != nil {
		return nil, err
	}
	r.tables[name] = t
	return t, nil
}

func (r *Registry) Get(name string) (*Table, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// Update reloads a registered table from new source text. A failed
// reload leaves the table serving its previous content.
func (r *Registry) Update(name, source string) error {
	t, ok := r.tables[name]
	if !ok {
		return fmt.Errorf("table: no such table %q", name)
	}
	return t.Update(source)
}

// OpenAll opens every registered table, stopping at the first failure.
func (r *Registry) OpenAll() error {
	for _, t := range r.tables {
		if err := t.Open(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every registered table and empties the registry.
func (r *Registry) Close() error {
	var lastErr error
	for name, t := range r.tables {
		if err := t.Close(); err != nil {
			lastErr = err
			r.log.Error("failed to close table",
				zap.String("table", name), zap.Error(err))
		}
		delete(r.tables, name)
	}
	return lastErr
}
