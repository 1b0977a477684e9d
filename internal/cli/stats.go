package cli

import (
	"context"
	"errors"

	"github.com/dustin/go-humanize"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/xmdb/pkg/treedb"
)

// StatsCmd returns the stats command.
func StatsCmd(a *app) *Command {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "stats",
		Short: "Show node counts per table and database size",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			store, err := a.open(ctx)
			if err != nil {
				return err
			}

			var (
				size  int64
				lines []treedb.Stats
			)

			for _, table := range store.Config().Tables {
				ns := treedb.Namespace{Database: a.ns.Database, Table: table}

				st, err := store.Stats(ctx, ns)
				if errors.Is(err, treedb.ErrUnknownTableType) {
					continue
				}

				if err != nil {
					return err
				}

				size = st.FileSize
				lines = append(lines, st)
			}

			o.Printf("database %s (%s)\n", a.ns.Database, humanize.Bytes(uint64(max(size, 0))))

			for _, st := range lines {
				o.Printf("  %-10s live=%s deleted=%s\n",
					st.Namespace.Table, humanize.Comma(int64(st.Live)), humanize.Comma(int64(st.Deleted)))
			}

			return nil
		},
	}
}
