package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/xmdb/internal/config"
	"github.com/calvinalkan/xmdb/pkg/docmap"
	"github.com/calvinalkan/xmdb/pkg/treedb"
)

// Run is the main entry point. Returns exit code.
//
// sigCh, when non-nil, cancels the running command on the first signal.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globalFlags := flag.NewFlagSet("xmdb", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.SetOutput(&strings.Builder{}) // discard pflag output

	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagCwd := globalFlags.StringP("cwd", "C", "", "Run as if started in `dir`")
	flagConfig := globalFlags.StringP("config", "c", "", "Use specified config `file`")
	flagDataDir := globalFlags.String("data-dir", "", "Override data directory")
	flagDB := globalFlags.StringP("db", "d", "", "`database` to operate on, content or audit (default: content_db from config)")
	flagTable := globalFlags.StringP("table", "t", treedb.TableTree, "Table to operate on")
	flagActor := globalFlags.String("actor", "", "Actor `id` recorded in audit entries")

	a := &app{stdin: stdin}
	commands := newCommands(a)

	if len(args) > 0 {
		args = args[1:]
	}

	err := globalFlags.Parse(args)
	if err != nil {
		fprintln(errOut, "error:", err)
		fprintln(errOut)
		printUsage(errOut, globalFlags, commands)

		return 1
	}

	if globalFlags.Changed("data-dir") && *flagDataDir == "" {
		fprintln(errOut, "error:", config.ErrDataDirEmpty)
		fprintln(errOut)
		printUsage(errOut, globalFlags, commands)

		return 1
	}

	rest := globalFlags.Args()

	if *flagHelp || len(rest) == 0 {
		printUsage(out, globalFlags, commands)

		return 0
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: *flagCwd,
		ConfigPath:      *flagConfig,
		DataDirOverride: *flagDataDir,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	log := logrus.New()
	log.SetOutput(errOut)
	log.SetLevel(cfg.Level)

	a.cfg = cfg
	a.log = log
	a.ns = treedb.Namespace{Database: cfg.ContentDB, Table: *flagTable}

	if *flagDB != "" {
		a.ns.Database = *flagDB
	}

	cmd := findCommand(commands, rest[0])
	if cmd == nil {
		fprintln(errOut, "error: unknown command:", rest[0])
		fprintln(errOut)
		printUsage(errOut, globalFlags, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if *flagActor != "" {
		ctx = treedb.WithActor(ctx, treedb.Actor{
			ID:      *flagActor,
			Request: map[string]string{"source": "cli", "command": cmd.Name()},
		})
	}

	code := cmd.Run(ctx, NewIO(out, errOut), rest[1:])

	closeErr := a.close()
	if closeErr != nil {
		fprintln(errOut, "error:", closeErr)

		return 1
	}

	return code
}

// app carries the state shared by all commands of one invocation.
// The store is opened on first use, so print-config and help never
// touch the data directory.
type app struct {
	stdin io.Reader
	cfg   config.Config
	log   *logrus.Logger
	ns    treedb.Namespace
	store *treedb.Store
}

func (a *app) open(ctx context.Context) (*treedb.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	storeCfg := a.cfg.Store(a.log)

	// The audit database is always open; any other name is an extra content database.
	if a.ns.Database != a.cfg.ContentDB && a.ns.Database != storeCfg.AuditDatabase {
		storeCfg.Databases = append(storeCfg.Databases, a.ns.Database)
	}

	store, err := treedb.Open(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a.store = store

	return store, nil
}

func (a *app) mapper(ctx context.Context) (*docmap.Mapper, error) {
	store, err := a.open(ctx)
	if err != nil {
		return nil, err
	}

	return docmap.New(store, a.ns, docmap.WithLogger(a.log)), nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}

	err := a.store.Close()
	a.store = nil

	return err
}

// newCommands returns fresh command instances. Flag sets keep parsed values,
// so every invocation (including each shell line) needs its own.
func newCommands(a *app) []*Command {
	return []*Command{
		CreateCmd(a),
		GetCmd(a),
		GetKeyCmd(a),
		UpdateCmd(a),
		DeleteCmd(a),
		UpsertCmd(a),
		ChildrenCmd(a),
		TreeCmd(a),
		OrderCmd(a),
		DocImportCmd(a),
		DocExportCmd(a),
		AuditCmd(a),
		StatsCmd(a),
		PrintConfigCmd(a),
		ShellCmd(a),
	}
}

func findCommand(commands []*Command, name string) *Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}

	return nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globalFlags *flag.FlagSet, commands []*Command) {
	fprintln(w, `xmdb - versioned tree record store

Usage: xmdb [global flags] <command> [args]

Global flags:`)

	var buf strings.Builder

	globalFlags.SetOutput(&buf)
	globalFlags.PrintDefaults()
	globalFlags.SetOutput(&strings.Builder{})

	_, _ = io.WriteString(w, buf.String())

	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}
}
