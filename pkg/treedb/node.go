package treedb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Namespace is a (database, table) pair. Caches and uniqueness are scoped to it.
type Namespace struct {
	Database string
	Table    string
}

// String returns "database/table".
func (ns Namespace) String() string {
	return ns.Database + "/" + ns.Table
}

// Kind is the domain tag stored in a node's type column.
//
// The document kinds below have payload shapes understood by package docmap.
// Any other value is a generic record kind and is stored verbatim.
type Kind string

// Document node kinds.
const (
	KindDoc       Kind = "doc"
	KindParagraph Kind = "paragraph"
	KindHeading   Kind = "heading"
	KindTable     Kind = "table"
	KindTableRow  Kind = "tableRow"
	KindTableCell Kind = "tableCell"
	KindText      Kind = "text"
	KindHardBreak Kind = "hardBreak"
)

// IsContainer reports whether nodes of this kind hold child content.
func (k Kind) IsContainer() bool {
	switch k {
	case KindDoc, KindParagraph, KindHeading, KindTable, KindTableRow, KindTableCell:
		return true
	default:
		return false
	}
}

// IsInline reports whether the kind lives inside a paragraph.
func (k Kind) IsInline() bool {
	return k == KindText || k == KindHardBreak
}

// IsGeneric reports whether k is not one of the document kinds.
func (k Kind) IsGeneric() bool {
	return !k.IsContainer() && !k.IsInline()
}

// CompositeKey identifies a node among its live siblings.
type CompositeKey struct {
	Pid  int64
	Name string
}

// String returns the denormalized form stored in the key column: "<pid>/<name>".
func (k CompositeKey) String() string {
	return strconv.FormatInt(k.Pid, 10) + "/" + k.Name
}

// Node is one row of a table namespace.
//
// Payloads are opaque JSON; nil means the column is NULL. Nodes returned by
// [Store] are copies; mutating them does not affect the cache.
type Node struct {
	ID         int64           `json:"id"`
	Pid        int64           `json:"pid"`
	Name       string          `json:"name"`
	Key        string          `json:"key"`
	Type       Kind            `json:"type"`
	Version    int64           `json:"version"`
	VersionO   int64           `json:"version_o"`
	VersionT   int64           `json:"version_t"`
	Data       json.RawMessage `json:"data,omitempty"`
	DataO      json.RawMessage `json:"data_o,omitempty"`
	DataT      json.RawMessage `json:"data_t,omitempty"`
	CreateTime int64           `json:"create_time"`
	UpdateTime int64           `json:"update_time"`
	DeleteTime *int64          `json:"delete_time,omitempty"`
}

// CompositeKey returns the node's (pid, name) key.
func (n *Node) CompositeKey() CompositeKey {
	return CompositeKey{Pid: n.Pid, Name: n.Name}
}

// DecodeData unmarshals the primary payload into v. A NULL payload leaves v untouched.
func (n *Node) DecodeData(v any) error {
	return decodePayload(n.Data, v)
}

// DecodeDataT unmarshals the typed/metadata payload into v.
// A NULL payload leaves v untouched.
func (n *Node) DecodeDataT(v any) error {
	return decodePayload(n.DataT, v)
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}

	err := json.Unmarshal(raw, v)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return nil
}

// Payloads carries the three JSON payload columns of a node.
// A nil field is absent and stored as NULL.
type Payloads struct {
	Data  json.RawMessage
	DataO json.RawMessage
	DataT json.RawMessage
}

// CreateInput describes a node for [Store.Create].
type CreateInput struct {
	Pid      int64
	Name     string
	Type     Kind
	Payloads Payloads

	// UniqueFields names columns whose value must not already exist among live
	// rows of the table. Allowed: name, key, type, data, data_o, data_t.
	UniqueFields []string
}

// Update lists the changes for [Store.Update]. Nil fields are left unchanged.
type Update struct {
	Name  *string
	Pid   *int64
	Type  *Kind
	Data  json.RawMessage
	DataO json.RawMessage
	DataT json.RawMessage
}

// UpsertInput describes a node for [Store.Upsert], matched by (Pid, Name).
type UpsertInput struct {
	Pid      int64
	Name     string
	Type     Kind
	Payloads Payloads
}

// DeleteOptions controls [Store.Delete].
type DeleteOptions struct {
	// Hard removes the row instead of setting delete_time.
	Hard bool

	// ExpectedVersion, when set, must match the stored version.
	ExpectedVersion *int64
}

// JSON builds a payload from any JSON-marshalable value. It panics on
// values encoding/json rejects, which makes it suited to literals and tests.
func JSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("treedb.JSON: %v", err))
	}

	return b
}

// normalizePayload returns the canonical encoding of raw: object keys sorted,
// insignificant whitespace removed, numbers in canonical form. A JSON null
// normalizes to nil, so it clears the column on update. nil stays nil.
func normalizePayload(raw json.RawMessage) (json.RawMessage, error) {
	if raw == nil {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any

	err := dec.Decode(&v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformedPayload)
	}

	if v == nil {
		return nil, nil
	}

	out, err := json.Marshal(canonicalNumbers(v))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return out, nil
}

// canonicalNumbers rewrites every number in v so that numerically equal
// literals encode the same: 2, 2.0 and 2e0 all become 2, 1.50 becomes 1.5.
// Integers within int64 keep full precision; anything else goes through
// float64. Literals float64 cannot hold (1e400) are kept verbatim.
func canonicalNumbers(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = canonicalNumbers(e)
		}

		return x
	case []any:
		for i, e := range x {
			x[i] = canonicalNumbers(e)
		}

		return x
	case json.Number:
		return canonicalNumber(x)
	default:
		return v
	}
}

// maxExactInt is 2^63; float64 values below it in magnitude convert to int64.
const maxExactInt = 1 << 63

func canonicalNumber(n json.Number) json.Number {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return json.Number(strconv.FormatInt(i, 10))
	}

	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return n
	}

	if f == math.Trunc(f) && math.Abs(f) < maxExactInt {
		return json.Number(strconv.FormatInt(int64(f), 10))
	}

	return json.Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// payloadChanged reports whether next differs from prev after normalization.
// Both are expected to be normalized already.
func payloadChanged(prev, next json.RawMessage) bool {
	if (prev == nil) != (next == nil) {
		return true
	}

	return !bytes.Equal(prev, next)
}

// initialVersion is 1 for a present payload and 0 for an absent one.
func initialVersion(raw json.RawMessage) int64 {
	if raw == nil {
		return 0
	}

	return 1
}
