package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/xmdb/pkg/treedb"
)

// UpdateCmd returns the update command.
func UpdateCmd(a *app) *Command {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	version := fs.Int64("version", 0, "Expected version (default: the current version)")
	name := fs.String("name", "", "New name")
	pid := fs.Int64("pid", 0, "New parent id (0 = root)")
	kind := fs.String("type", "", "New node type")
	payloads := addPayloadFlags(fs)

	return &Command{
		Flags: fs,
		Usage: "update <id> [flags]",
		Short: "Update a node under optimistic concurrency",
		Long: `Update name, parent, type or payloads of a node. The write only succeeds
when the stored version still equals --version; otherwise it fails with a
version conflict and nothing changes. Re-read the node and retry.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			id, err := requireID(args)
			if err != nil {
				return err
			}

			p := payloads.payloads()
			upd := treedb.Update{Data: p.Data, DataO: p.DataO, DataT: p.DataT}

			if fs.Changed("name") {
				upd.Name = name
			}

			if fs.Changed("pid") {
				upd.Pid = pid
			}

			if fs.Changed("type") {
				k := treedb.Kind(*kind)
				upd.Type = &k
			}

			if upd.Name == nil && upd.Pid == nil && upd.Type == nil &&
				upd.Data == nil && upd.DataO == nil && upd.DataT == nil {
				return errNothingToWrite
			}

			store, err := a.open(ctx)
			if err != nil {
				return err
			}

			expected := *version
			if !fs.Changed("version") {
				cur, err := store.Read(ctx, a.ns, id)
				if err != nil {
					return err
				}

				if cur == nil {
					return fmt.Errorf("%w: id %d", treedb.ErrRecordNotFound, id)
				}

				expected = cur.Version
			}

			node, err := store.Update(ctx, a.ns, id, upd, expected)
			if err != nil {
				return err
			}

			return printJSON(o, node)
		},
	}
}

// UpsertCmd returns the upsert command.
func UpsertCmd(a *app) *Command {
	fs := flag.NewFlagSet("upsert", flag.ContinueOnError)
	pid := fs.Int64("pid", 0, "Parent id (0 = root)")
	kind := fs.String("type", "", "Node type")
	payloads := addPayloadFlags(fs)

	return &Command{
		Flags: fs,
		Usage: "upsert <name> [flags]",
		Short: "Update the node with (pid, name) or create it",
		Long: `Update the live node with composite key (--pid, name), or create it when
absent. The update is last-write-wins: it does not detect a writer that
changed the node before this call.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 || args[0] == "" {
				return errNameRequired
			}

			store, err := a.open(ctx)
			if err != nil {
				return err
			}

			node, err := store.Upsert(ctx, a.ns, treedb.UpsertInput{
				Pid:      *pid,
				Name:     args[0],
				Type:     treedb.Kind(*kind),
				Payloads: payloads.payloads(),
			})
			if err != nil {
				return err
			}

			return printJSON(o, node)
		},
	}
}
