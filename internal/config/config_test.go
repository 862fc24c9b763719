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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrel-mail/kestrel/internal/table"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
tables:
  - name: aliases
    backend: static
    entries: |
      root admin@example.org
  - name: users
    backend: db
    path: /var/db/kestrel/users.db
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(cfg.Tables) != 2 {
		t.Fatalf("Parse() got %d tables, want 2", len(cfg.Tables))
	}
	if cfg.Tables[0].Name != "aliases" || cfg.Tables[0].Backend != "static" {
		t.Errorf("Parse() tables[0] = %+v", cfg.Tables[0])
	}
	if cfg.Tables[1].Path != "/var/db/kestrel/users.db" {
		t.Errorf("Parse() tables[1] = %+v", cfg.Tables[1])
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tables  []TableDecl
		wantErr bool
	}{
		{"valid", []TableDecl{{Name: "a", Backend: "static"}}, false},
		{"missing-name", []TableDecl{{Backend: "static"}}, true},
		{"duplicate-name", []TableDecl{{Name: "a", Backend: "static"}, {Name: "a", Backend: "static"}}, true},
		{"unknown-backend", []TableDecl{{Name: "a", Backend: "ldap"}}, true},
		{"static-path-and-entries", []TableDecl{{Name: "a", Backend: "static", Path: "/x", Entries: "k v"}}, true},
		{"db-without-path", []TableDecl{{Name: "a", Backend: "db"}}, true},
		{"db-with-entries", []TableDecl{{Name: "a", Backend: "db", Path: "/x", Entries: "k v"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Tables: tt.tables}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildRegistry(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "aliases")
	if err := os.WriteFile(sourcePath, []byte("postmaster root\n"), 0o600); err != nil {
		t.Fatalf("failed to write source file: %v", err)
	}

	cfg := &Config{Tables: []TableDecl{
		{Name: "inline", Backend: "static", Entries: "root admin@example.org"},
		{Name: "file", Backend: "static", Path: sourcePath},
	}}

	reg, err := cfg.BuildRegistry(nil)
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}
	defer reg.Close()

	for _, tc := range []struct{ tbl, key string }{
		{"inline", "root"},
		{"file", "postmaster"},
	} {
		tbl, ok := reg.Get(tc.tbl)
		if !ok {
			t.Fatalf("Get(%q) did not find the table", tc.tbl)
		}
		if _, found, err := tbl.Lookup(context.Background(), tc.key, table.ServiceAlias); err != nil || !found {
			t.Errorf("Lookup(%q) in %q = (%v, %v), want found", tc.key, tc.tbl, found, err)
		}
	}
}

func TestBuildRegistryMissingSourceFile(t *testing.T) {
	cfg := &Config{Tables: []TableDecl{
		{Name: "file", Backend: "static", Path: filepath.Join(t.TempDir(), "absent")},
	}}
	if _, err := cfg.BuildRegistry(nil); err == nil {
		t.Error("BuildRegistry() expected an error for a missing source file")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.yml")
	if err := os.WriteFile(path, []byte("tables:\n  - name: a\n    backend: static\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Tables) != 1 || cfg.Tables[0].Name != "a" {
		t.Errorf("Load() got = %+v", cfg.Tables)
	}
}
