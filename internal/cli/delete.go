package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/xmdb/pkg/treedb"
)

// DeleteCmd returns the delete command.
func DeleteCmd(a *app) *Command {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	hard := fs.Bool("hard", false, "Remove the row instead of soft-deleting it")
	version := fs.Int64("version", 0, "Expected version; fail on mismatch")

	return &Command{
		Flags: fs,
		Usage: "delete <id> [flags]",
		Short: "Delete a node (soft by default)",
		Long: `Delete a node. A soft delete sets delete_time and keeps the row; --hard
removes it. Children of the node are left in place.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			id, err := requireID(args)
			if err != nil {
				return err
			}

			store, err := a.open(ctx)
			if err != nil {
				return err
			}

			opts := treedb.DeleteOptions{Hard: *hard}
			if fs.Changed("version") {
				opts.ExpectedVersion = version
			}

			children, err := store.Children(ctx, a.ns, id)
			if err != nil {
				return err
			}

			_, err = store.Delete(ctx, a.ns, id, opts)
			if err != nil {
				return err
			}

			if len(children) > 0 {
				o.WarnLLM(
					fmt.Sprintf("node %d had %d live children, they now point at a deleted parent", id, len(children)),
					"delete or move them",
				)
			}

			o.Println("deleted", id)

			return nil
		},
	}
}
