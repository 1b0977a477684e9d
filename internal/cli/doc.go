package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/xmdb/pkg/docmap"
)

var errNoInput = errors.New("no document given (pass a file or pipe it on stdin)")

// DocImportCmd returns the doc-import command.
func DocImportCmd(a *app) *Command {
	fs := flag.NewFlagSet("doc-import", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "doc-import <root-id> [file]",
		Short: "Write a JSON document into the tree at root-id",
		Long: `Read a JSON document from file (or stdin when file is "-" or missing) and
apply it to the tree at root-id:

  - a text root gets the first text node of the document
  - a paragraph root gets the document's attrs and first text
  - a doc root is reconciled position by position: matching nodes are
    updated, missing ones created, surplus ones deleted
  - any other root receives the document content as new or updated children

Prints the ids that were created, updated and deleted.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			rootID, err := requireID(args)
			if err != nil {
				return err
			}

			path := "-"
			if len(args) > 1 {
				path = args[1]
			}

			data, err := a.readInput(path)
			if err != nil {
				return err
			}

			doc, err := docmap.ParseDocument(data)
			if err != nil {
				return err
			}

			m, err := a.mapper(ctx)
			if err != nil {
				return err
			}

			res, err := m.DocumentToTree(ctx, rootID, doc)
			if err != nil {
				return err
			}

			return printJSON(o, res)
		},
	}
}

// DocExportCmd returns the doc-export command.
func DocExportCmd(a *app) *Command {
	fs := flag.NewFlagSet("doc-export", flag.ContinueOnError)
	output := fs.StringP("output", "o", "", "Write to `file` atomically instead of stdout")

	return &Command{
		Flags: fs,
		Usage: "doc-export <root-id> [flags]",
		Short: "Print the tree at root-id as a JSON document",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			rootID, err := requireID(args)
			if err != nil {
				return err
			}

			m, err := a.mapper(ctx)
			if err != nil {
				return err
			}

			doc, err := m.TreeToDocument(ctx, rootID)
			if err != nil {
				return err
			}

			data, err := docmap.MarshalIndent(doc)
			if err != nil {
				return err
			}

			if *output == "" {
				o.Println(string(data))

				return nil
			}

			path := a.resolvePath(*output)

			err = os.MkdirAll(filepath.Dir(path), 0o750)
			if err != nil {
				return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
			}

			err = atomic.WriteFile(path, bytes.NewReader(append(data, '\n')))
			if err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			o.Println("wrote", path)

			return nil
		},
	}
}

// readInput reads path relative to the effective working directory, or
// stdin for "-".
func (a *app) readInput(path string) ([]byte, error) {
	if path == "-" {
		if a.stdin == nil {
			return nil, errNoInput
		}

		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}

		if len(bytes.TrimSpace(data)) == 0 {
			return nil, errNoInput
		}

		return data, nil
	}

	path = a.resolvePath(path)

	data, err := os.ReadFile(path) //nolint:gosec // user supplied path
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return data, nil
}

func (a *app) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(a.cfg.EffectiveCwd, path)
}
