// Package docmap maps rich-text documents onto treedb trees and back.
//
// A document is a nested [Node] tree made of the kinds listed in
// [treedb.Kind]. Each document node becomes one tree node of the same kind:
//
//   - text nodes keep their text in data ({"text": "..."}) and their marks in
//     data_t ({"marks": [...]})
//   - container nodes (doc, paragraph, heading, table, tableRow, tableCell)
//     keep their attributes in data_t ({"attrs": {...}})
//   - hardBreak nodes carry no payload
//
// Child order in the tree is the adjacency order of the store (by id).
package docmap

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/calvinalkan/xmdb/pkg/treedb"
)

// ErrDocumentTooDeep reports a document nested deeper than the store's MaxDepth.
var ErrDocumentTooDeep = errors.New("document nested too deep")

// Node is one node of a document AST.
type Node struct {
	Type    treedb.Kind    `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*Node        `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
}

// Mark is an inline formatting mark on a text node.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Doc returns a doc node holding content.
func Doc(content ...*Node) *Node {
	return &Node{Type: treedb.KindDoc, Content: content}
}

// Paragraph returns a paragraph node holding inline content.
func Paragraph(content ...*Node) *Node {
	return &Node{Type: treedb.KindParagraph, Content: content}
}

// Text returns a text node.
func Text(text string, marks ...Mark) *Node {
	return &Node{Type: treedb.KindText, Text: text, Marks: marks}
}

// HardBreak returns a hardBreak node.
func HardBreak() *Node {
	return &Node{Type: treedb.KindHardBreak}
}

// ParseDocument decodes a JSON document.
func ParseDocument(data []byte) (*Node, error) {
	var doc Node

	err := json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", treedb.ErrMalformedPayload, err)
	}

	if doc.Type == "" {
		return nil, errors.New("document has no type")
	}

	return &doc, nil
}

// firstOfKind returns n when it has kind, else its first descendant of kind.
func firstOfKind(n *Node, kind treedb.Kind) *Node {
	stack := []*Node{n}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur == nil {
			continue
		}

		if cur.Type == kind {
			return cur
		}

		for i := len(cur.Content) - 1; i >= 0; i-- {
			stack = append(stack, cur.Content[i])
		}
	}

	return nil
}

// textPayload is the data of a text node.
type textPayload struct {
	Text string `json:"text"`
}

// typedPayload is the data_t of any document node.
type typedPayload struct {
	Attrs map[string]any `json:"attrs,omitempty"`
	Marks []Mark         `json:"marks,omitempty"`
}

// payloadsFor returns the data and data_t a document node is stored with.
// Nil results are left untouched on update.
func payloadsFor(n *Node) (data, dataT json.RawMessage) {
	switch {
	case n.Type == treedb.KindText:
		return treedb.JSON(textPayload{Text: n.Text}), treedb.JSON(typedPayload{Marks: n.Marks})
	case n.Type == treedb.KindHardBreak:
		return nil, nil
	default:
		return nil, treedb.JSON(typedPayload{Attrs: n.Attrs})
	}
}
