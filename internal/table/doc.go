// Package table implements the lookup-table subsystem.
//
//
// # Lookup tables
//
// A table is a named key/value source other components query for alias
// expansions, virtual-domain rewrites, user credentials and network
// address matches. The same lookup surface is served by interchangeable
// backends:
//
//   - static: an in-memory, insertion-ordered entry list parsed from
//     newline-delimited "key value" source text. Reloadable.
//   - db: a pre-built, read-only on-disk key/value store, looked up by
//     exact key. Built with the kestrel-tables tool.
//
// Example declaration (see the config package):
//
// ```
// tables:
//   - name: aliases
//     backend: static
//     entries: |
//       postmaster root
//       abuse postmaster@example.org
//   - name: users
//     backend: db
//     path: /var/db/kestrel/users.db
// ```
//
// ## Service kinds
//
// *alias* resolves a key to a comma-separated list of delivery targets.
//
// *virtual* does the same for virtual-domain addresses; a key without a
// local part marks the bare domain as hosted, with no rewrite attached.
//
// *credentials* resolves a key to a user:password pair.
//
// *netaddr* resolves a key to a network address with a prefix length.
//
// Every lookup distinguishes not-found, found, found-without-payload
// (virtual domain presence) and decode failure; callers must not treat
// a decode failure as a miss.
package table
