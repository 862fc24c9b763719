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

package address

import (
	"fmt"
	"net/netip"
	"strings"
)

// ParsePrefix parses a network address with an optional prefix length.
// A bare address is treated as a host prefix (/32 or /128). The address
// part is kept as written; callers that need the canonical network
// address should mask the result themselves.
func ParsePrefix(s string) (netip.Prefix, error) {
	if strings.ContainsRune(s, '/') {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("address: %w", err)
		}
		return prefix, nil
	}

	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("address: %w", err)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}
