package cli

import (
	"context"

	"github.com/mattn/go-runewidth"
	flag "github.com/spf13/pflag"
)

// ChildrenCmd returns the children command.
func ChildrenCmd(a *app) *Command {
	fs := flag.NewFlagSet("children", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "Print full nodes as JSON")

	return &Command{
		Flags: fs,
		Usage: "children [pid] [flags]",
		Short: "List live children of a node (default: roots)",
		Long: `List the live children of pid in adjacency order, one per line:
id, name, type and version. Without pid the root nodes are listed.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			var pid int64

			if len(args) > 0 {
				var err error

				pid, err = parseID(args[0])
				if err != nil {
					return err
				}
			}

			store, err := a.open(ctx)
			if err != nil {
				return err
			}

			nodes, err := store.Children(ctx, a.ns, pid)
			if err != nil {
				return err
			}

			if *asJSON {
				return printJSON(o, nodes)
			}

			// Names may hold wide runes; pad by display width.
			width := 0
			for i := range nodes {
				width = max(width, runewidth.StringWidth(nodes[i].Name))
			}

			for i := range nodes {
				n := &nodes[i]
				o.Printf("%-6d %s  %-10s v%d\n", n.ID, runewidth.FillRight(n.Name, width), n.Type, n.Version)
			}

			return nil
		},
	}
}
