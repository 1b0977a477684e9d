package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"
)

const historyFileName = "shell_history"

var errShellNested = errors.New("shell cannot be started from within the shell")

// ShellCmd returns the shell command.
func ShellCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("shell", flag.ContinueOnError),
		Usage: "shell",
		Short: "Interactive shell on the current namespace",
		Long: `Run commands against one open store without restarting the process.
Each line is a command with its arguments, quoted like in a POSIX shell:

  create intro --type paragraph --data '{"text": "hello world"}'

Type 'help' for commands and 'exit' to leave. When stdin is not a terminal,
lines are read from it until EOF.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			sh := &shell{app: a}

			if f, ok := a.stdin.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
				return sh.runInteractive(ctx, o)
			}

			return sh.runScript(ctx, o)
		},
	}
}

type shell struct {
	app   *app
	liner *liner.State
}

// runInteractive is the readline loop.
func (sh *shell) runInteractive(ctx context.Context, o *IO) error {
	sh.liner = liner.NewLiner()
	defer sh.liner.Close()

	sh.liner.SetCtrlCAborts(true)
	sh.liner.SetCompleter(sh.completer)

	if f, err := os.Open(sh.historyFile()); err == nil {
		_, _ = sh.liner.ReadHistory(f)
		_ = f.Close()
	}

	defer sh.saveHistory()

	o.Printf("xmdb shell on %s\n", sh.app.ns)
	o.Println("Type 'help' for available commands.")

	for ctx.Err() == nil {
		line, err := sh.liner.Prompt("xmdb> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				o.Println()

				return nil
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		sh.liner.AppendHistory(line)

		if sh.exec(ctx, o, line) {
			return nil
		}
	}

	return ctx.Err()
}

// runScript executes one command per line of stdin.
func (sh *shell) runScript(ctx context.Context, o *IO) error {
	if sh.app.stdin == nil {
		return nil
	}

	scanner := bufio.NewScanner(sh.app.stdin)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if sh.exec(ctx, o, line) {
			return nil
		}
	}

	err := scanner.Err()
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	return nil
}

// exec runs one line. Command errors are printed and do not stop the shell.
// Reports true when the shell should exit.
func (sh *shell) exec(ctx context.Context, o *IO, line string) bool {
	args, err := shlex.Split(line)
	if err != nil {
		o.ErrPrintln("error:", err)

		return false
	}

	if len(args) == 0 {
		return false
	}

	commands := newCommands(sh.app)

	switch args[0] {
	case "exit", "quit", "q":
		return true
	case "help", "?":
		for _, cmd := range commands {
			if cmd.Name() != "shell" {
				o.Println(cmd.HelpLine())
			}
		}

		o.Println("  exit                         Leave the shell")

		return false
	case "shell":
		o.ErrPrintln("error:", errShellNested)

		return false
	}

	cmd := findCommand(commands, args[0])
	if cmd == nil {
		o.ErrPrintln("error: unknown command:", args[0], "(type 'help' for commands)")

		return false
	}

	cmd.Run(ctx, o, args[1:])

	return false
}

func (sh *shell) historyFile() string {
	return filepath.Join(sh.app.cfg.DataDirAbs, historyFileName)
}

// saveHistory persists command history to disk.
func (sh *shell) saveHistory() {
	f, err := os.Create(sh.historyFile())
	if err != nil {
		return
	}

	_, _ = sh.liner.WriteHistory(f)
	_ = f.Close()
}

// completer provides tab completion for command names.
func (sh *shell) completer(line string) []string {
	var out []string

	for _, cmd := range newCommands(sh.app) {
		if strings.HasPrefix(cmd.Name(), line) && cmd.Name() != "shell" {
			out = append(out, cmd.Name())
		}
	}

	return out
}
