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

// Package auth verifies cleartext passwords against the password field
// of a credentials table entry.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/GehirnInc/crypt"
	_ "github.com/GehirnInc/crypt/md5_crypt"
	_ "github.com/GehirnInc/crypt/sha256_crypt"
	_ "github.com/GehirnInc/crypt/sha512_crypt"
	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned when the password does not match the stored
// entry. Any other error means the entry itself could not be used.
var ErrMismatch = errors.New("auth: password does not match")

// VerifyPassword checks password against a stored credentials value.
// bcrypt and crypt(3)-style hashes are recognized by their prefix;
// anything else is compared as cleartext.
func VerifyPassword(stored, password string) error {
	switch {
	case strings.HasPrefix(stored, "$2a$"),
		strings.HasPrefix(stored, "$2b$"),
		strings.HasPrefix(stored, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		return nil

	case strings.HasPrefix(stored, "$"):
		if !crypt.IsHashSupported(stored) {
			return errors.New("auth: unsupported password hash")
		}
		err := crypt.NewFromHash(stored).Verify(stored, []byte(password))
		if errors.Is(err, crypt.ErrKeyMismatch) {
			return ErrMismatch
		}
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		return nil

	default:
		if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
			return ErrMismatch
		}
		return nil
	}
}
