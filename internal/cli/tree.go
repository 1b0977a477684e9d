package cli

import (
	"context"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/xmdb/pkg/treedb"
)

// TreeCmd returns the tree command.
func TreeCmd(a *app) *Command {
	fs := flag.NewFlagSet("tree", flag.ContinueOnError)
	root := fs.Int64("root", 0, "Root node id (0 = all roots)")
	depth := fs.Int("depth", 0, "Number of levels to return (0 = max_tree_depth)")
	page := fs.Int("page", 1, "Page of every sibling list, 1-based")
	limit := fs.Int("limit", 0, "Siblings per page (0 = all)")
	format := fs.StringP("format", "f", formatJSON, "Output format: json|yaml")

	return &Command{
		Flags: fs,
		Usage: "tree [flags]",
		Short: "Print nested tree of nodes",
		Long: `Print the subtree under --root, or all root trees, as nested nodes.
Siblings follow the parent's order record (see "order"), then id order.
--page and --limit apply to every sibling list separately.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			store, err := a.open(ctx)
			if err != nil {
				return err
			}

			nodes, err := store.BuildTree(ctx, a.ns, treedb.TreeOptions{
				RootID:   *root,
				MaxDepth: *depth,
				Page:     *page,
				Limit:    *limit,
			})
			if err != nil {
				return err
			}

			return printFormatted(o, *format, nodes)
		},
	}
}

// OrderCmd returns the order command.
func OrderCmd(a *app) *Command {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "order <pid> [id...]",
		Short: "Show or set the sibling order of a node's children",
		Long: `Without ids, print the explicit order of pid's children. With ids, store
them as the new order; children missing from the list are sorted last.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			pid, err := requireID(args)
			if err != nil {
				return err
			}

			ids := make([]int64, 0, len(args)-1)

			for _, arg := range args[1:] {
				id, err := parseID(arg)
				if err != nil {
					return err
				}

				ids = append(ids, id)
			}

			store, err := a.open(ctx)
			if err != nil {
				return err
			}

			if len(ids) > 0 {
				_, err = store.SetOrder(ctx, a.ns, pid, ids)
				if err != nil {
					return err
				}
			}

			order, err := store.Order(ctx, a.ns, pid)
			if err != nil {
				return err
			}

			parts := make([]string, 0, len(order))
			for _, id := range order {
				parts = append(parts, strconv.FormatInt(id, 10))
			}

			o.Println(strings.Join(parts, " "))

			return nil
		},
	}
}
