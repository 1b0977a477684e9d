package cli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/xmdb/pkg/treedb"
)

// CreateCmd returns the create command.
func CreateCmd(a *app) *Command {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	pid := fs.Int64("pid", 0, "Parent id (0 = root)")
	kind := fs.String("type", "", "Node type")
	unique := fs.StringSlice("unique", nil, "Column that must be unique among live rows (repeatable)")
	payloads := addPayloadFlags(fs)

	return &Command{
		Flags: fs,
		Usage: "create <name> [flags]",
		Short: "Create a node, prints it as JSON",
		Long: `Create a node under --pid. The name must be unique among the live
children of the parent. Payloads are JSON and are stored normalized.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 || args[0] == "" {
				return errNameRequired
			}

			store, err := a.open(ctx)
			if err != nil {
				return err
			}

			node, err := store.Create(ctx, a.ns, treedb.CreateInput{
				Pid:          *pid,
				Name:         args[0],
				Type:         treedb.Kind(*kind),
				Payloads:     payloads.payloads(),
				UniqueFields: *unique,
			})
			if err != nil {
				return err
			}

			return printJSON(o, node)
		},
	}
}
