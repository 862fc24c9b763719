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
	"strings"
)

// Entry is one stored key/value pair of a static table. Keys are not
// required to be unique; lookups return the entry inserted first.
type Entry struct {
	Key   string
	Value string
}

// ParseSource turns static table source text into entries, preserving
// line order. Each record is "key" or "key value"; blank lines and lines
// starting with '#' are skipped. List-form records (no value) carry the
// key as their value so that service decoders still have something to
// work on.
func ParseSource(source string) ([]Entry, error) {
	var entries []Entry
	for i, line := range strings.Split(source, "\n") {
		if len(line) >= MaxLineSize {
			return nil, fmt.Errorf("table: line %d exceeds maximum line size", i+1)
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value := line, line
		if sep := strings.IndexAny(line, " \t"); sep != -1 {
			key = line[:sep]
			value = strings.TrimSpace(line[sep+1:])
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return entries, nil
}
