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
	"net/netip"

	"github.com/gaissmai/bart"

	"github.com/kestrel-mail/kestrel/internal/address"
)

// NetSet answers whether an address falls inside any netaddr entry of a
// table. It is built once from the table's keys; reloading the table
// does not refresh an already-built set.
type NetSet struct {
	prefixes bart.Lite
}

// BuildNetSet collects every key of a netaddr table into a prefix set.
// The scan rides on Compare so both backends feed it the same way.
func BuildNetSet(ctx context.Context, tbl *Table) (*NetSet, error) {
	set := &NetSet{}

	var parseErr error
	_, err := tbl.Compare(ctx, "", ServiceNetAddr, func(_, stored string) bool {
		prefix, err := address.ParsePrefix(stored)
		if err != nil {
			parseErr = fmt.Errorf("table %q: netaddr key %q: %w", tbl.Name, stored, err)
			return true // stop the scan
		}
		set.prefixes.Insert(prefix.Masked())
		return false
	})
	if err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return set, nil
}

// Contains reports whether addr is covered by any prefix in the set.
func (s *NetSet) Contains(addr netip.Addr) bool {
	return s.prefixes.Contains(addr)
}
