package cli

import (
	"context"
	"errors"
	"time"

	flag "github.com/spf13/pflag"
)

var errAuditDisabled = errors.New("audit log is disabled")

const defaultAuditLimit = 20

// AuditCmd returns the audit command.
func AuditCmd(a *app) *Command {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	limit := fs.IntP("limit", "n", defaultAuditLimit, "Maximum entries to print (0 = all)")
	asJSON := fs.Bool("json", false, "Print entries as JSON")

	return &Command{
		Flags: fs,
		Usage: "audit [flags]",
		Short: "List audit entries, newest first",
		Long: `List journaled operations, newest first: time, operation, namespace,
target id, outcome and actor. Entries are best-effort and may be missing
when the audit database could not be written.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			store, err := a.open(ctx)
			if err != nil {
				return err
			}

			log := store.Audit()
			if log == nil {
				return errAuditDisabled
			}

			entries, err := log.Entries(ctx, *limit)
			if err != nil {
				return err
			}

			if *asJSON {
				return printJSON(o, entries)
			}

			for _, e := range entries {
				outcome := "ok"
				if !e.OK {
					outcome = "error: " + e.Error
				}

				actor := "-"
				if e.Actor != nil && e.Actor.ID != "" {
					actor = e.Actor.ID
				}

				o.Printf("%s  %-7s %s/%s  id=%d  actor=%s  %s\n",
					e.Time.UTC().Format(time.RFC3339), e.Op, e.Database, e.Table, e.TargetID, actor, outcome)
			}

			return nil
		},
	}
}
