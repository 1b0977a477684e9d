package cli

import (
	"context"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, a)
		},
	}
}

func execPrintConfig(io *IO, a *app) error {
	cfg := a.cfg

	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println("data_dir=" + cfg.DataDirAbs)
	io.Println("content_db=" + cfg.ContentDB)
	io.Println("audit_db=" + cfg.AuditDB)
	io.Println("tables=" + strings.Join(cfg.Tables, ","))
	io.Println("cache_ttl=" + cfg.TTL.String())
	io.Println("log_level=" + cfg.Level.String())
	io.Println("max_tree_depth=" + strconv.Itoa(cfg.MaxTreeDepth))
	io.Println("namespace=" + a.ns.String())

	io.Println("")
	io.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		io.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			io.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			io.Println("project_config=" + cfg.Sources.Project)
		}
	}

	return nil
}
