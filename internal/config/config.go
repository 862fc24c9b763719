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

// Package config loads table declarations from a YAML file and turns
// them into a live table registry.
package config

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kestrel-mail/kestrel/internal/table"
)

// TableDecl declares one lookup table.
//
// A static table takes its source either inline (entries) or from a
// flat file (path). A db table names the store file to open.
type TableDecl struct {
	Name    string `yaml:"name"`
	Backend string `yaml:"backend"`
	Path    string `yaml:"path,omitempty"`
	Entries string `yaml:"entries,omitempty"`
}

type Config struct {
	Tables []TableDecl `yaml:"tables"`
}

// ValidationError reports which declaration field was rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for i, decl := range c.Tables {
		field := fmt.Sprintf("tables[%d]", i)
		if decl.Name == "" {
			return &ValidationError{field + ".name", "table name is required"}
		}
		if seen[decl.Name] {
			return &ValidationError{field + ".name", fmt.Sprintf("duplicate table name %q", decl.Name)}
		}
		seen[decl.Name] = true

		switch decl.Backend {
		case "static":
			if decl.Path != "" && decl.Entries != "" {
				return &ValidationError{field, "path and entries are mutually exclusive"}
			}
		case "db":
			if decl.Path == "" {
				return &ValidationError{field + ".path", "db tables require a store path"}
			}
			if decl.Entries != "" {
				return &ValidationError{field + ".entries", "db tables cannot take inline entries"}
			}
		default:
			return &ValidationError{field + ".backend", fmt.Sprintf("unknown backend %q", decl.Backend)}
		}
	}
	return nil
}

// BuildRegistry materializes and opens every declared table. On any
// failure the tables opened so far are closed again.
func (c *Config) BuildRegistry(logger *zap.Logger) (*table.Registry, error) {
	reg := table.NewRegistry(logger)
	for _, decl := range c.Tables {
		source := decl.Entries
		switch {
		case decl.Backend == "db":
			source = decl.Path
		case decl.Backend == "static" && decl.Path != "":
			data, err := os.ReadFile(decl.Path)
			if err != nil {
				_ = reg.Close()
				return nil, fmt.Errorf("config: table %q: %w", decl.Name, err)
			}
			source = string(data)
		}

		tbl, err := reg.Create(decl.Backend, decl.Name, source)
		if err != nil {
			_ = reg.Close()
			return nil, err
		}
		if err := tbl.Open(); err != nil {
			_ = reg.Close()
			return nil, err
		}
	}
	return reg, nil
}
