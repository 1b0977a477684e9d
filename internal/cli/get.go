package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/xmdb/pkg/treedb"
)

// GetCmd returns the get command.
func GetCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("get", flag.ContinueOnError),
		Usage: "get <id>",
		Short: "Print a live node as JSON",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			id, err := requireID(args)
			if err != nil {
				return err
			}

			store, err := a.open(ctx)
			if err != nil {
				return err
			}

			node, err := store.Read(ctx, a.ns, id)
			if err != nil {
				return err
			}

			if node == nil {
				return fmt.Errorf("%w: id %d", treedb.ErrRecordNotFound, id)
			}

			return printJSON(o, node)
		},
	}
}

// GetKeyCmd returns the get-key command.
func GetKeyCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("get-key", flag.ContinueOnError),
		Usage: "get-key <pid> <name>",
		Short: "Print the live node with a composite key",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			pid, err := requireID(args)
			if err != nil {
				return err
			}

			if len(args) < 2 || args[1] == "" {
				return errNameRequired
			}

			store, err := a.open(ctx)
			if err != nil {
				return err
			}

			key := treedb.CompositeKey{Pid: pid, Name: args[1]}

			node, err := store.ReadByKey(ctx, a.ns, key)
			if err != nil {
				return err
			}

			if node == nil {
				return fmt.Errorf("%w: key %s", treedb.ErrRecordNotFound, key)
			}

			return printJSON(o, node)
		},
	}
}
