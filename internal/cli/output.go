package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/xmdb/pkg/treedb"
)

var (
	errIDRequired     = errors.New("id is required")
	errNameRequired   = errors.New("name is required")
	errInvalidID      = errors.New("invalid id")
	errUnknownFormat  = errors.New("unknown format (must be json or yaml)")
	errNothingToWrite = errors.New("no changes given")
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, s)
	}

	return id, nil
}

// requireID parses the first positional argument as an id.
func requireID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errIDRequired
	}

	return parseID(args[0])
}

func printJSON(o *IO, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	o.Println(string(data))

	return nil
}

// printYAML renders v through its JSON form, so payload columns come out as
// structured YAML instead of byte lists.
func printYAML(o *IO, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	var generic any

	err = json.Unmarshal(data, &generic)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	enc := yaml.NewEncoder(o.Out())
	enc.SetIndent(2)

	err = enc.Encode(generic)
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	return enc.Close()
}

func printFormatted(o *IO, format string, v any) error {
	switch format {
	case formatJSON:
		return printJSON(o, v)
	case formatYAML:
		return printYAML(o, v)
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

// payloadFlags registers --data, --data-o and --data-t on a flag set.
type payloadFlags struct {
	fs    *flag.FlagSet
	data  *string
	dataO *string
	dataT *string
}

func addPayloadFlags(fs *flag.FlagSet) *payloadFlags {
	return &payloadFlags{
		fs:    fs,
		data:  fs.String("data", "", "Primary payload (JSON)"),
		dataO: fs.String("data-o", "", "Secondary payload (JSON)"),
		dataT: fs.String("data-t", "", "Typed/metadata payload (JSON)"),
	}
}

// payloads returns the payloads given on the command line. Flags that were
// not set stay nil.
func (p *payloadFlags) payloads() treedb.Payloads {
	var out treedb.Payloads

	if p.fs.Changed("data") {
		out.Data = json.RawMessage(*p.data)
	}

	if p.fs.Changed("data-o") {
		out.DataO = json.RawMessage(*p.dataO)
	}

	if p.fs.Changed("data-t") {
		out.DataT = json.RawMessage(*p.dataT)
	}

	return out
}
