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

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/kestrel-mail/kestrel/internal/address"
	"github.com/kestrel-mail/kestrel/internal/config"
	"github.com/kestrel-mail/kestrel/internal/table"
)

func main() {
	app := &cli.App{
		Name:  "kestrel-tables",
		Usage: "build, check and query kestrel lookup tables",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log table operations to stderr",
			},
		},
		Commands: []*cli.Command{
			buildCommand(),
			checkCommand(),
			dumpCommand(),
			lookupCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logger(ctx *cli.Context) *zap.Logger {
	if !ctx.Bool("verbose") {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "compile flat table source into an indexed store",
		ArgsUsage: "SOURCE STORE",
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 2 {
				return errors.New("usage: build SOURCE STORE")
			}
			src, dst := ctx.Args().Get(0), ctx.Args().Get(1)

			data, err := os.ReadFile(src)
			if err != nil {
				return err
			}
			entries, err := table.ParseSource(string(data))
			if err != nil {
				return err
			}

			db, err := bolt.Open(dst, 0o600, nil)
			if err != nil {
				return err
			}
			defer db.Close()

			err = db.Update(func(tx *bolt.Tx) error {
				b, err := tx.CreateBucketIfNotExists(table.DBBucket)
				if err != nil {
					return err
				}
				for _, e := range entries {
					// a hashed store cannot keep duplicates the way a
					// static table does
					if b.Get([]byte(e.Key)) != nil {
						return fmt.Errorf("duplicate key %q", e.Key)
					}
					if err := b.Put([]byte(e.Key), []byte(e.Value)); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d entries\n", dst, len(entries))
			return nil
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "validate flat table source",
		ArgsUsage: "SOURCE",
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 1 {
				return errors.New("usage: check SOURCE")
			}
			data, err := os.ReadFile(ctx.Args().Get(0))
			if err != nil {
				return err
			}
			entries, err := table.ParseSource(string(data))
			if err != nil {
				return err
			}
			fmt.Printf("%d entries\n", len(entries))
			return nil
		},
	}
}

func dumpCommand() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "list the contents of an indexed store",
		ArgsUsage: "STORE",
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 1 {
				return errors.New("usage: dump STORE")
			}
			db, err := bolt.Open(ctx.Args().Get(0), 0o600, &bolt.Options{ReadOnly: true})
			if err != nil {
				return err
			}
			defer db.Close()

			return db.View(func(tx *bolt.Tx) error {
				b := tx.Bucket(table.DBBucket)
				if b == nil {
					return errors.New("store has no table bucket")
				}
				return b.ForEach(func(k, v []byte) error {
					fmt.Printf("%s\t%s\n", k, v)
					return nil
				})
			})
		},
	}
}

func lookupCommand() *cli.Command {
	return &cli.Command{
		Name:      "lookup",
		Usage:     "resolve a key in a declared table",
		ArgsUsage: "TABLE KEY",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Usage:    "table declaration file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "service",
				Usage: "service kind: alias, virtual, credentials or netaddr",
				Value: "alias",
			},
		},
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() != 2 {
				return errors.New("usage: lookup TABLE KEY")
			}
			name, key := ctx.Args().Get(0), ctx.Args().Get(1)

			kind, err := table.ParseServiceKind(ctx.String("service"))
			if err != nil {
				return err
			}

			cfg, err := config.Load(ctx.String("config"))
			if err != nil {
				return err
			}
			reg, err := cfg.BuildRegistry(logger(ctx))
			if err != nil {
				return err
			}
			defer reg.Close()

			tbl, ok := reg.Get(name)
			if !ok {
				return fmt.Errorf("no such table %q", name)
			}

			rec, found, err := tbl.Lookup(ctx.Context, key, kind)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%s: not found", key)
			}
			printRecord(rec)
			return nil
		},
	}
}

func printRecord(rec table.Record) {
	switch r := rec.(type) {
	case nil:
		fmt.Println("found (domain is local, no rewrite)")
	case *table.Credentials:
		fmt.Printf("username: %s\npassword: %s\n", r.Username, r.Password)
	case *table.Expansion:
		for _, node := range r.Nodes {
			switch node.Kind {
			case address.Username:
				fmt.Printf("%s\t%s\n", node.Kind, node.User)
			case address.Address:
				fmt.Printf("%s\t%s@%s\n", node.Kind, node.User, node.Domain)
			case address.Filename:
				fmt.Printf("%s\t%s\n", node.Kind, node.Path)
			case address.Filter:
				fmt.Printf("%s\t%s\n", node.Kind, node.Command)
			}
		}
	case *table.NetAddress:
		fmt.Println(r.Prefix)
	}
}
