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
	"strings"
	"testing"
)

func newTestTable(t *testing.T, kind, source string) *Table {
	t.Helper()
	tbl, err := New(kind, "test", source, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := tbl.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { tbl.Close() })
	return tbl
}

func firstUser(t *testing.T, rec Record) string {
	t.Helper()
	exp, ok := rec.(*Expansion)
	if !ok || len(exp.Nodes) == 0 {
		t.Fatalf("expected a non-empty expansion, got %v", rec)
	}
	return exp.Nodes[0].User
}

func TestStaticLookupInsertionOrder(t *testing.T) {
	tbl := newTestTable(t, "static", strings.Join([]string{
		"dup first",
		"other someone",
		"dup second",
	}, "\n"))

	rec, found, err := tbl.Lookup(context.Background(), "dup", ServiceAlias)
	if err != nil || !found {
		t.Fatalf("Lookup() = (%v, %v, %v), want found", rec, found, err)
	}
	if got := firstUser(t, rec); got != "first" {
		t.Errorf("Lookup() resolved to %q, want the earliest duplicate %q", got, "first")
	}
}

func TestStaticLookupMiss(t *testing.T) {
	tbl := newTestTable(t, "static", "root admin")

	rec, found, err := tbl.Lookup(context.Background(), "absent", ServiceAlias)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if found || rec != nil {
		t.Errorf("Lookup() = (%v, %v), want a miss", rec, found)
	}
}

func TestStaticLookupDecodeError(t *testing.T) {
	tbl := newTestTable(t, "static", "broken a,,c")

	_, found, err := tbl.Lookup(context.Background(), "broken", ServiceAlias)
	if err == nil {
		t.Fatal("Lookup() expected a decode error")
	}
	if found {
		t.Error("Lookup() reported found alongside an error")
	}
}

func TestStaticLookupNotOpen(t *testing.T) {
	tbl, err := New("static", "test", "root admin", nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, _, err := tbl.Lookup(context.Background(), "root", ServiceAlias); err != ErrNotOpen {
		t.Errorf("Lookup() error = %v, want ErrNotOpen", err)
	}
}

func TestStaticCompare(t *testing.T) {
	tbl := newTestTable(t, "static", strings.Join([]string{
		"alpha.example.org x",
		"beta.example.org x",
	}, "\n"))

	suffixMatch := func(probe, stored string) bool {
		return strings.HasSuffix(probe, stored)
	}

	found, err := tbl.Compare(context.Background(), "mail.beta.example.org", ServiceAlias, suffixMatch)
	if err != nil || !found {
		t.Errorf("Compare() = (%v, %v), want a match", found, err)
	}

	found, err = tbl.Compare(context.Background(), "mail.gamma.example.org", ServiceAlias, suffixMatch)
	if err != nil || found {
		t.Errorf("Compare() = (%v, %v), want no match", found, err)
	}
}

func TestStaticUpdate(t *testing.T) {
	tbl := newTestTable(t, "static", "user1 old@example.org")
	name, id := tbl.Name, tbl.ID

	if err := tbl.Update("user1 new@example.org"); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if tbl.Name != name || tbl.ID != id {
		t.Errorf("Update() changed identity: (%q, %d), want (%q, %d)", tbl.Name, tbl.ID, name, id)
	}

	rec, found, err := tbl.Lookup(context.Background(), "user1", ServiceAlias)
	if err != nil || !found {
		t.Fatalf("Lookup() = (%v, %v, %v), want found", rec, found, err)
	}
	if got := firstUser(t, rec); got != "new" {
		t.Errorf("Lookup() resolved to %q, want content from the new source", got)
	}
}

func TestStaticUpdateFailure(t *testing.T) {
	tbl := newTestTable(t, "static", "user1 old@example.org")

	bad := strings.Repeat("x", MaxLineSize)
	if err := tbl.Update(bad); err == nil {
		t.Fatal("Update() expected an error for unparsable source")
	}

	rec, found, err := tbl.Lookup(context.Background(), "user1", ServiceAlias)
	if err != nil || !found {
		t.Fatalf("Lookup() = (%v, %v, %v), want found", rec, found, err)
	}
	if got := firstUser(t, rec); got != "old" {
		t.Errorf("failed Update() changed content: got %q, want %q", got, "old")
	}
}

func TestStaticUpdateNoSource(t *testing.T) {
	tbl := newTestTable(t, "static", "user1 old@example.org")

	if err := tbl.Update(""); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	rec, found, err := tbl.Lookup(context.Background(), "user1", ServiceAlias)
	if err != nil || !found {
		t.Fatalf("Lookup() = (%v, %v, %v), want found", rec, found, err)
	}
	if got := firstUser(t, rec); got != "old" {
		t.Errorf("Update(\"\") changed content: got %q, want %q", got, "old")
	}
}

func TestStaticVirtualPresence(t *testing.T) {
	tbl := newTestTable(t, "static", "example.com\nuser@example.com joe")

	rec, found, err := tbl.Lookup(context.Background(), "example.com", ServiceVirtual)
	if err != nil || !found {
		t.Fatalf("Lookup() = (%v, %v, %v), want found", rec, found, err)
	}
	if rec != nil {
		t.Errorf("Lookup() got record %v, want presence without payload", rec)
	}

	rec, found, err = tbl.Lookup(context.Background(), "user@example.com", ServiceVirtual)
	if err != nil || !found {
		t.Fatalf("Lookup() = (%v, %v, %v), want found", rec, found, err)
	}
	if got := firstUser(t, rec); got != "joe" {
		t.Errorf("Lookup() resolved to %q, want %q", got, "joe")
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New("carrier-pigeon", "test", "", nil); err == nil {
		t.Error("New() expected an error for an unknown backend kind")
	}
}

func TestTableServices(t *testing.T) {
	tbl := newTestTable(t, "static", "")
	want := ServiceAlias | ServiceVirtual | ServiceCredentials | ServiceNetAddr
	if got := tbl.Services(); got != want {
		t.Errorf("Services() = %v, want %v", got, want)
	}
}
