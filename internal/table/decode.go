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
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/kestrel-mail/kestrel/internal/address"
)

// Record is a decoded table value. The concrete type depends on the
// service kind the lookup was made under.
type Record interface {
	isRecord()
}

// Credentials authenticate one user.
type Credentials struct {
	Username string
	Password string
}

func (*Credentials) isRecord() {}

// Expansion is the ordered list of delivery targets an alias or virtual
// address rewrites to. It is never empty.
type Expansion struct {
	Nodes []address.Node
}

func (*Expansion) isRecord() {}

// NetAddress is a network address with a prefix length.
type NetAddress struct {
	Prefix netip.Prefix
}

func (*NetAddress) isRecord() {}

func decodeValue(key, value string, kind ServiceKind) (Record, error) {
	switch kind {
	case ServiceAlias:
		return decodeAlias(key, value)
	case ServiceVirtual:
		return decodeVirtual(key, value)
	case ServiceCredentials:
		return decodeCredentials(key, value)
	case ServiceNetAddr:
		return decodeNetAddr(key, value)
	}
	return nil, fmt.Errorf("unsupported service kind %v", kind)
}

func decodeCredentials(key, value string) (Record, error) {
	// credentials are stored as user:password
	if len(value) < 3 {
		return nil, fmt.Errorf("credentials for %q: entry too short", key)
	}

	// too big to fit in a session line
	if len(value) >= MaxLineSize {
		return nil, fmt.Errorf("credentials for %q: entry exceeds maximum line size", key)
	}

	sep := strings.IndexByte(value, ':')
	if sep == -1 {
		return nil, fmt.Errorf("credentials for %q: missing separator", key)
	}
	if sep == 0 || sep == len(value)-1 {
		return nil, fmt.Errorf("credentials for %q: empty username or password", key)
	}

	username, password := value[:sep], value[sep+1:]
	if len(username) >= MaxUsernameSize {
		return nil, fmt.Errorf("credentials for %q: username too long", key)
	}
	if len(password) >= MaxPasswordSize {
		return nil, fmt.Errorf("credentials for %q: password too long", key)
	}

	return &Credentials{Username: username, Password: password}, nil
}

func decodeAlias(key, value string) (Record, error) {
	nodes, err := expandValue(value)
	if err != nil {
		return nil, fmt.Errorf("alias %q: %w", key, err)
	}
	return &Expansion{Nodes: nodes}, nil
}

func decodeVirtual(key, value string) (Record, error) {
	// A key without a local part only asserts that the domain is hosted
	// here; the value is not examined.
	if !strings.ContainsRune(key, '@') {
		return nil, nil
	}

	nodes, err := expandValue(value)
	if err != nil {
		return nil, fmt.Errorf("virtual %q: %w", key, err)
	}
	return &Expansion{Nodes: nodes}, nil
}

func decodeNetAddr(key, value string) (Record, error) {
	prefix, err := address.ParsePrefix(value)
	if err != nil {
		return nil, fmt.Errorf("netaddr %q: %w", key, err)
	}
	return &NetAddress{Prefix: prefix}, nil
}

var errEmptyTarget = errors.New("empty expansion target")

// expandValue splits a comma-separated list of expansion targets. The
// whole list is rejected if any element is empty after trimming or does
// not parse.
func expandValue(value string) ([]address.Node, error) {
	parts := strings.Split(value, ",")
	nodes := make([]address.Node, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, errEmptyTarget
		}
		node, err := address.ParseNode(part)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}
