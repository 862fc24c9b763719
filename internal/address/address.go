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
	"errors"
	"fmt"
	"strings"
)

// NodeKind identifies the delivery method a parsed expansion target
// resolves to.
type NodeKind int

const (
	// Username is a bare local account name.
	Username NodeKind = iota
	// Address is a fully qualified user@domain address.
	Address
	// Filename appends the message to a file.
	Filename
	// Filter pipes the message through an external command.
	Filter
)

func (k NodeKind) String() string {
	switch k {
	case Username:
		return "username"
	case Address:
		return "address"
	case Filename:
		return "filename"
	case Filter:
		return "filter"
	}
	return "unknown"
}

const (
	maxUsernameLen = 64
	maxTargetLen   = 1024
)

// Node is one parsed expansion target.
type Node struct {
	Kind    NodeKind
	User    string
	Domain  string
	Path    string
	Command string
}

var (
	errEmptyTarget = errors.New("address: empty expansion target")
	errLongTarget  = errors.New("address: expansion target too long")
)

// ParseNode parses a single expansion target. Targets starting with '|'
// are filter commands, targets starting with '/' are file paths, targets
// containing '@' are full addresses and anything else must be a valid
// local username.
func ParseNode(s string) (Node, error) {
	if s == "" {
		return Node{}, errEmptyTarget
	}
	if len(s) >= maxTargetLen {
		return Node{}, errLongTarget
	}

	switch {
	case s[0] == '|':
		command := strings.TrimSpace(s[1:])
		if command == "" {
			return Node{}, errors.New("address: empty filter command")
		}
		return Node{Kind: Filter, Command: command}, nil

	case s[0] == '/':
		return Node{Kind: Filename, Path: s}, nil

	case strings.ContainsRune(s, '@'):
		user, domain, err := splitAddress(s)
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: Address, User: user, Domain: domain}, nil

	default:
		if !validUsername(s) {
			return Node{}, fmt.Errorf("address: invalid username %q", s)
		}
		return Node{Kind: Username, User: s}, nil
	}
}

func splitAddress(s string) (user, domain string, err error) {
	sep := strings.LastIndexByte(s, '@')
	user, domain = s[:sep], s[sep+1:]
	if user == "" || domain == "" {
		return "", "", fmt.Errorf("address: malformed address %q", s)
	}
	if !validDomain(domain) {
		return "", "", fmt.Errorf("address: invalid domain %q", domain)
	}
	return user, domain, nil
}

func validUsername(s string) bool {
	if len(s) >= maxUsernameLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.' || c == '-' || c == '_' || c == '+':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func validDomain(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.' || c == '-':
			if i == 0 || i == len(s)-1 {
				return false
			}
		case c == '[' || c == ']' || c == ':':
			// address literals
		default:
			return false
		}
	}
	return true
}
