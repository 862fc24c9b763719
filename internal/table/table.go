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
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"
)

const (
	// MaxLineSize bounds any key or raw value a table handles; it matches
	// the longest line the session layer accepts.
	MaxLineSize = 2048

	// Bounds for the fields of a decoded credentials entry. A field at or
	// over its bound is a decode error, never a truncation.
	MaxUsernameSize = 64
	MaxPasswordSize = 256
)

// ServiceKind selects the semantic interpretation of a looked-up value.
// Kinds are single bits so a backend can advertise the set it supports
// as a mask.
type ServiceKind uint32

const (
	ServiceAlias ServiceKind = 1 << iota
	ServiceVirtual
	ServiceCredentials
	ServiceNetAddr
)

func (k ServiceKind) String() string {
	var names []string
	for _, s := range []struct {
		kind ServiceKind
		name string
	}{
		{ServiceAlias, "alias"},
		{ServiceVirtual, "virtual"},
		{ServiceCredentials, "credentials"},
		{ServiceNetAddr, "netaddr"},
	} {
		if k&s.kind != 0 {
			names = append(names, s.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseServiceKind maps a service kind name to its bit value.
func ParseServiceKind(name string) (ServiceKind, error) {
	switch strings.ToLower(name) {
	case "alias":
		return ServiceAlias, nil
	case "virtual":
		return ServiceVirtual, nil
	case "credentials":
		return ServiceCredentials, nil
	case "netaddr":
		return ServiceNetAddr, nil
	}
	return 0, fmt.Errorf("table: unknown service kind %q", name)
}

// MatchFunc is the predicate Compare applies to each stored key. probe is
// the key supplied by the caller, stored is a key from the table.
type MatchFunc func(probe, stored string) bool

// Backend is a concrete table storage implementation. It reports the
// service kinds it can serve, validates configuration source text, opens
// a read handle and drives reloads.
//
// Callers must not request a service kind outside the Services mask;
// backends do not check it.
type Backend interface {
	Services() ServiceKind
	Config(tbl *Table, source string) error
	Open(tbl *Table) (Handle, error)
	Update(tbl *Table, source string) error
}

// Handle is an open read handle onto backend storage. Lookup resolves a
// key under a service kind; Compare scans stored keys with a predicate.
//
// Lookup outcomes: (rec, true, nil) is found-with-record; (nil, true,
// nil) is found with no payload, which only occurs for virtual-domain
// presence keys; (nil, false, nil) is not-found; a non-nil error is a
// decode or storage failure and must not be treated as not-found.
type Handle interface {
	Lookup(ctx context.Context, key string, kind ServiceKind) (Record, bool, error)
	Compare(ctx context.Context, key string, kind ServiceKind, match MatchFunc) (bool, error)
	Close() error
}

var (
	// ErrNotOpen is returned when a table is used before Open or after
	// Close.
	ErrNotOpen = errors.New("table: table is not open")

	// ErrKeyTooLong is returned for probe keys at or over MaxLineSize.
	// Such keys indicate a caller bug, not a miss.
	ErrKeyTooLong = errors.New("table: lookup key exceeds maximum line size")
)

// BackendFactory constructs a fresh backend instance of some kind.
type BackendFactory func() Backend

var backendFactories = map[string]BackendFactory{}

// RegisterBackend makes a backend kind available to New. It is meant to
// be called from init functions of backend implementations.
func RegisterBackend(kind string, factory BackendFactory) {
	if _, ok := backendFactories[kind]; ok {
		panic("table: backend " + kind + " registered twice")
	}
	backendFactories[kind] = factory
}

// Table is a named, capability-tagged handle to a key/value lookup
// source. Name and ID survive reloads; content does not.
type Table struct {
	Name string
	ID   uint64

	// Source is the backend kind the table was created with.
	Source string

	backend Backend
	handle  Handle
	log     *zap.Logger
}

// New creates a table of the given backend kind and feeds it the
// configuration source. The table is not usable until Open.
func New(kind, name, source string, logger *zap.Logger) (*Table, error) {
	factory, ok := backendFactories[kind]
	if !ok {
		return nil, fmt.Errorf("table: unknown backend kind %q", kind)
	}
	if len(name) >= MaxLineSize {
		return nil, errors.New("table: table name exceeds maximum line size")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	t := &Table{
		Name:    name,
		ID:      rand.Uint64(),
		Source:  kind,
		backend: factory(),
		log:     logger,
	}
	if err := t.backend.Config(t, source); err != nil {
		return nil, fmt.Errorf("table %q: %w", name, err)
	}
	return t, nil
}

// Services reports the service kinds the table's backend can serve.
func (t *Table) Services() ServiceKind {
	return t.backend.Services()
}

// Open acquires backend storage. A failure leaves the table unusable but
// is not fatal to the caller.
func (t *Table) Open() error {
	if t.handle != nil {
		return nil
	}
	h, err := t.backend.Open(t)
	if err != nil {
		t.log.Error("failed to open table",
			zap.String("table", t.Name),
			zap.String("backend", t.Source),
			zap.Error(err))
		return fmt.Errorf("table %q: %w", t.Name, err)
	}
	t.handle = h
	return nil
}

// Update reloads the table from new configuration source text. On
// failure the previous content keeps serving.
func (t *Table) Update(source string) error {
	return t.backend.Update(t, source)
}

// Close releases backend storage. Closing a table that is not open is a
// no-op.
func (t *Table) Close() error {
	if t.handle == nil {
		return nil
	}
	h := t.handle
	t.handle = nil
	return h.Close()
}

// Lookup resolves key under the requested service kind. See Handle for
// the outcome model.
func (t *Table) Lookup(ctx context.Context, key string, kind ServiceKind) (Record, bool, error) {
	if t.handle == nil {
		return nil, false, ErrNotOpen
	}
	rec, found, err := t.handle.Lookup(ctx, key, kind)
	switch {
	case err != nil:
		lookupsTotal.WithLabelValues(t.Source, "error").Inc()
		return nil, false, fmt.Errorf("table %q: %w", t.Name, err)
	case !found:
		lookupsTotal.WithLabelValues(t.Source, "miss").Inc()
	default:
		lookupsTotal.WithLabelValues(t.Source, "hit").Inc()
	}
	return rec, found, nil
}

// Compare reports whether any stored key satisfies match against the
// probe key. Values are not consulted.
func (t *Table) Compare(ctx context.Context, key string, kind ServiceKind, match MatchFunc) (bool, error) {
	if t.handle == nil {
		return false, ErrNotOpen
	}
	return t.handle.Compare(ctx, key, kind, match)
}
