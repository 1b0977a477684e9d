package docmap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/calvinalkan/xmdb/pkg/treedb"
)

// DefaultLabels are the name prefixes of generated nodes, per kind.
func DefaultLabels() map[treedb.Kind]string {
	return map[treedb.Kind]string{
		treedb.KindDoc:       "Document",
		treedb.KindParagraph: "Paragraph",
		treedb.KindHeading:   "Heading",
		treedb.KindTable:     "Table",
		treedb.KindTableRow:  "Row",
		treedb.KindTableCell: "Cell",
		treedb.KindText:      "Text",
		treedb.KindHardBreak: "Break",
	}
}

// Mapper converts between documents and the tree of one namespace.
type Mapper struct {
	store    *treedb.Store
	ns       treedb.Namespace
	labels   map[treedb.Kind]string
	log      logrus.FieldLogger
	maxDepth int
}

// Option configures a [Mapper].
type Option func(*Mapper)

// WithLabels overrides name prefixes of generated nodes, e.g. for a
// localized UI. Kinds missing from labels keep their default.
func WithLabels(labels map[treedb.Kind]string) Option {
	return func(m *Mapper) {
		for kind, label := range labels {
			m.labels[kind] = label
		}
	}
}

// WithLogger sets the logger. Default: the store's logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(m *Mapper) { m.log = log }
}

// New returns a mapper working on ns.
func New(store *treedb.Store, ns treedb.Namespace, opts ...Option) *Mapper {
	cfg := store.Config()

	m := &Mapper{
		store:    store,
		ns:       ns,
		labels:   DefaultLabels(),
		log:      cfg.Logger,
		maxDepth: cfg.MaxDepth,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Result lists the nodes touched by [Mapper.DocumentToTree].
type Result struct {
	RootID  int64   `json:"root_id"`
	Created []int64 `json:"created"`
	Updated []int64 `json:"updated"`
	Deleted []int64 `json:"deleted"`
}

func newResult(rootID int64) *Result {
	return &Result{RootID: rootID, Created: []int64{}, Updated: []int64{}, Deleted: []int64{}}
}

// DocumentToTree writes doc into the tree below rootID.
//
// What happens depends on the kind of the root node:
//
//   - text: the node's text and marks are replaced by the first text of doc
//   - paragraph: the paragraph's attrs and its first text child are replaced;
//     the text child is created when missing
//   - doc at the top level (pid 0): positional reconciliation. Blocks are
//     paired with existing children by index and updated in place (changing
//     kind where it differs), new ones are created and surplus ones
//     soft-deleted. The same happens for the inline children of each
//     paragraph.
//   - anything else: structural insertion of doc's content, reusing existing
//     children with the same kind and generated name
//
// Writes go through the store one node at a time; a failure part way leaves
// the nodes written so far in place.
func (m *Mapper) DocumentToTree(ctx context.Context, rootID int64, doc *Node) (*Result, error) {
	if doc == nil {
		return nil, errors.New("docmap: document is nil")
	}

	root, err := m.store.Read(ctx, m.ns, rootID)
	if err != nil {
		return nil, fmt.Errorf("docmap: reading root: %w", err)
	}

	if root == nil {
		return nil, fmt.Errorf("docmap: root %d: %w", rootID, treedb.ErrRecordNotFound)
	}

	res := newResult(rootID)

	switch {
	case root.Type == treedb.KindText:
		err = m.replaceText(ctx, *root, firstOfKind(doc, treedb.KindText), res)
	case root.Type == treedb.KindParagraph:
		err = m.replaceParagraph(ctx, *root, doc, res)
	case root.Type == treedb.KindDoc && root.Pid == 0:
		err = m.reconcile(ctx, *root, doc, res)
	default:
		content := []*Node{doc}
		if doc.Type == treedb.KindDoc {
			content = doc.Content
		}

		err = m.insert(ctx, root.ID, content, res)
	}

	if err != nil {
		return nil, err
	}

	m.log.WithFields(logrus.Fields{
		"root":    rootID,
		"created": len(res.Created),
		"updated": len(res.Updated),
		"deleted": len(res.Deleted),
	}).Debug("document written")

	return res, nil
}

// replaceText sets the text and marks of a text node from src.
// A nil src clears the text.
func (m *Mapper) replaceText(ctx context.Context, cur treedb.Node, src *Node, res *Result) error {
	if src == nil {
		src = Text("")
	}

	data, dataT := payloadsFor(src)

	_, err := m.apply(ctx, cur, treedb.Update{Data: data, DataT: dataT}, res)

	return err
}

// replaceParagraph updates the paragraph attrs and its first text child.
func (m *Mapper) replaceParagraph(ctx context.Context, para treedb.Node, doc *Node, res *Result) error {
	src := firstOfKind(doc, treedb.KindParagraph)
	if src == nil {
		src = Paragraph(doc)
	}

	_, dataT := payloadsFor(src)

	_, err := m.apply(ctx, para, treedb.Update{DataT: dataT}, res)
	if err != nil {
		return err
	}

	children, err := m.children(ctx, para.ID)
	if err != nil {
		return err
	}

	text := firstOfKind(src, treedb.KindText)

	for _, child := range children {
		if child.Type == treedb.KindText {
			return m.replaceText(ctx, child, text, res)
		}
	}

	if text == nil {
		text = Text("")
	}

	_, err = m.create(ctx, para.ID, m.label(treedb.KindText)+"1", text, children, res)

	return err
}

// reconcileTask pairs the existing children of parent with incoming content.
// With insert set, incoming is written by structural insertion instead.
type reconcileTask struct {
	parent   int64
	inline   bool
	insert   bool
	existing []treedb.Node
	incoming []*Node
}

// reconcile diffs doc against the tree below root by position.
//
// The doc's blocks are paired with the root's children by index whatever
// their kind, so the rendered order matches doc. Paragraphs recurse into
// their inline children the same way; other containers get their content
// by structural insertion below their own node.
func (m *Mapper) reconcile(ctx context.Context, root treedb.Node, doc *Node, res *Result) error {
	blocks := []*Node{doc}

	if doc.Type == treedb.KindDoc {
		_, dataT := payloadsFor(doc)

		_, err := m.apply(ctx, root, treedb.Update{DataT: dataT}, res)
		if err != nil {
			return err
		}

		blocks = doc.Content
	}

	children, err := m.children(ctx, root.ID)
	if err != nil {
		return err
	}

	work := []reconcileTask{{
		parent:   root.ID,
		existing: documentNodes(children),
		incoming: nonNil(blocks),
	}}

	for len(work) > 0 {
		task := work[len(work)-1]
		work = work[:len(work)-1]

		if task.insert {
			err = m.insert(ctx, task.parent, task.incoming, res)
			if err != nil {
				return err
			}

			continue
		}

		next, taskErr := m.reconcileLevel(ctx, task, res)
		if taskErr != nil {
			return taskErr
		}

		work = append(work, next...)
	}

	return nil
}

// reconcileLevel pairs one sibling list and returns the tasks for the
// content of the containers it touched.
func (m *Mapper) reconcileLevel(ctx context.Context, task reconcileTask, res *Result) ([]reconcileTask, error) {
	var next []reconcileTask

	siblings, err := m.children(ctx, task.parent)
	if err != nil {
		return nil, err
	}

	for i, src := range task.incoming {
		var node *treedb.Node

		if i < len(task.existing) {
			cur := task.existing[i]

			if cur.Type != src.Type && cur.Type.IsContainer() {
				err = m.deleteChildren(ctx, cur, res)
				if err != nil {
					return nil, err
				}
			}

			node, err = m.apply(ctx, cur, m.updateFor(cur, src, siblings, i), res)
			if err != nil {
				return nil, err
			}

			replaceSibling(siblings, *node)
		} else {
			node, err = m.create(ctx, task.parent, m.label(src.Type)+strconv.Itoa(i+1), src, siblings, res)
			if err != nil {
				return nil, err
			}

			siblings = append(siblings, *node)
		}

		if task.inline || !src.Type.IsContainer() {
			continue
		}

		content, contentErr := m.contentTask(ctx, node.ID, src)
		if contentErr != nil {
			return nil, contentErr
		}

		next = append(next, content)
	}

	for _, surplus := range task.existing[min(len(task.incoming), len(task.existing)):] {
		err = m.deleteSubtree(ctx, surplus, res)
		if err != nil {
			return nil, err
		}
	}

	return next, nil
}

// contentTask builds the task writing the content of container src into the
// node id: positional pairing of inline children for a paragraph, structural
// insertion for anything else.
func (m *Mapper) contentTask(ctx context.Context, id int64, src *Node) (reconcileTask, error) {
	if src.Type != treedb.KindParagraph {
		return reconcileTask{parent: id, insert: true, incoming: nonNil(src.Content)}, nil
	}

	children, err := m.children(ctx, id)
	if err != nil {
		return reconcileTask{}, err
	}

	return reconcileTask{
		parent:   id,
		inline:   true,
		existing: filterKinds(children, treedb.KindText, treedb.KindHardBreak),
		incoming: inlineContent(src),
	}, nil
}

func inlineContent(para *Node) []*Node {
	out := make([]*Node, 0, len(para.Content))

	for _, c := range para.Content {
		if c != nil && c.Type.IsInline() {
			out = append(out, c)
		}
	}

	return out
}

// updateFor builds the update turning cur, the i-th of siblings, into src.
//
// A change of kind also renames the node after its new kind and clears the
// payloads src does not carry, so no stale text survives on a hardBreak.
func (m *Mapper) updateFor(cur treedb.Node, src *Node, siblings []treedb.Node, i int) treedb.Update {
	data, dataT := payloadsFor(src)

	upd := treedb.Update{Data: data, DataT: dataT}

	if cur.Type == src.Type {
		return upd
	}

	kind := src.Type
	upd.Type = &kind

	if upd.Data == nil {
		upd.Data = jsonNull
	}

	if upd.DataT == nil {
		upd.DataT = jsonNull
	}

	others := make([]treedb.Node, 0, len(siblings))

	for _, s := range siblings {
		if s.ID != cur.ID {
			others = append(others, s)
		}
	}

	name := uniqueName(others, m.label(src.Type)+strconv.Itoa(i+1))
	if name != cur.Name {
		upd.Name = &name
	}

	return upd
}

// jsonNull clears a payload column on update.
var jsonNull = json.RawMessage("null")

// insertTask is one document node waiting to be written under parent.
type insertTask struct {
	parent int64
	node   *Node
	path   string
	depth  int
}

// insert writes content under parent, naming each node "<label><path>" where
// path is its 1-based position below the insertion point ("1", "1-2", ...).
// An existing child with the same name and kind is reused and updated.
func (m *Mapper) insert(ctx context.Context, parent int64, content []*Node, res *Result) error {
	work := make([]insertTask, 0, len(content))

	push := func(parent int64, nodes []*Node, prefix string, depth int) {
		for i := len(nodes) - 1; i >= 0; i-- {
			if nodes[i] == nil {
				continue
			}

			path := strconv.Itoa(i + 1)
			if prefix != "" {
				path = prefix + "-" + path
			}

			work = append(work, insertTask{parent: parent, node: nodes[i], path: path, depth: depth})
		}
	}

	push(parent, content, "", 1)

	for len(work) > 0 {
		task := work[len(work)-1]
		work = work[:len(work)-1]

		if task.depth > m.maxDepth {
			return fmt.Errorf("docmap: %w: more than %d levels", ErrDocumentTooDeep, m.maxDepth)
		}

		node, err := m.upsertChild(ctx, task.parent, m.label(task.node.Type)+task.path, task.node, res)
		if err != nil {
			return err
		}

		push(node.ID, task.node.Content, task.path, task.depth+1)
	}

	return nil
}

// upsertChild reuses the child of parent named name (or name_N) when it has
// src's kind, otherwise creates a new child with the first free name.
func (m *Mapper) upsertChild(ctx context.Context, parent int64, name string, src *Node, res *Result) (*treedb.Node, error) {
	siblings, err := m.children(ctx, parent)
	if err != nil {
		return nil, err
	}

	if cur := findNamed(siblings, name, src.Type); cur != nil {
		data, dataT := payloadsFor(src)

		return m.apply(ctx, *cur, treedb.Update{Data: data, DataT: dataT}, res)
	}

	return m.create(ctx, parent, name, src, siblings, res)
}

// create adds src under parent with the first free variant of name.
func (m *Mapper) create(ctx context.Context, parent int64, name string, src *Node, siblings []treedb.Node, res *Result) (*treedb.Node, error) {
	data, dataT := payloadsFor(src)

	n, err := m.store.Create(ctx, m.ns, treedb.CreateInput{
		Pid:      parent,
		Name:     uniqueName(siblings, name),
		Type:     src.Type,
		Payloads: treedb.Payloads{Data: data, DataT: dataT},
	})
	if err != nil {
		return nil, fmt.Errorf("docmap: creating %s under %d: %w", src.Type, parent, err)
	}

	res.Created = append(res.Created, n.ID)

	return n, nil
}

// apply updates cur and records it when anything visible moved.
func (m *Mapper) apply(ctx context.Context, cur treedb.Node, upd treedb.Update, res *Result) (*treedb.Node, error) {
	n, err := m.store.Update(ctx, m.ns, cur.ID, upd, cur.Version)
	if err != nil {
		return nil, fmt.Errorf("docmap: updating %d: %w", cur.ID, err)
	}

	if n.Version != cur.Version || n.VersionT != cur.VersionT || n.Type != cur.Type || n.Name != cur.Name {
		res.Updated = append(res.Updated, n.ID)
	}

	return n, nil
}

// deleteSubtree soft-deletes n and everything below it, leaves first.
func (m *Mapper) deleteSubtree(ctx context.Context, n treedb.Node, res *Result) error {
	var order []treedb.Node

	stack := []treedb.Node{n}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		order = append(order, cur)

		children, err := m.children(ctx, cur.ID)
		if err != nil {
			return err
		}

		stack = append(stack, children...)
	}

	for i := len(order) - 1; i >= 0; i-- {
		version := order[i].Version

		_, err := m.store.Delete(ctx, m.ns, order[i].ID, treedb.DeleteOptions{ExpectedVersion: &version})
		if err != nil {
			return fmt.Errorf("docmap: deleting %d: %w", order[i].ID, err)
		}

		res.Deleted = append(res.Deleted, order[i].ID)
	}

	return nil
}

// deleteChildren soft-deletes everything below n, keeping n itself.
func (m *Mapper) deleteChildren(ctx context.Context, n treedb.Node, res *Result) error {
	children, err := m.children(ctx, n.ID)
	if err != nil {
		return err
	}

	for _, child := range children {
		err = m.deleteSubtree(ctx, child, res)
		if err != nil {
			return err
		}
	}

	return nil
}

// SetText replaces the text and marks of the text node id.
// Returns [treedb.ErrInvalidNodeKind] for any other kind.
func (m *Mapper) SetText(ctx context.Context, id int64, text string, marks ...Mark) (*treedb.Node, error) {
	cur, err := m.store.Read(ctx, m.ns, id)
	if err != nil {
		return nil, fmt.Errorf("docmap: reading %d: %w", id, err)
	}

	if cur == nil {
		return nil, fmt.Errorf("docmap: node %d: %w", id, treedb.ErrRecordNotFound)
	}

	if cur.Type != treedb.KindText {
		return nil, fmt.Errorf("docmap: node %d is %q: %w", id, cur.Type, treedb.ErrInvalidNodeKind)
	}

	data, dataT := payloadsFor(Text(text, marks...))

	n, err := m.store.Update(ctx, m.ns, id, treedb.Update{Data: data, DataT: dataT}, cur.Version)
	if err != nil {
		return nil, fmt.Errorf("docmap: updating %d: %w", id, err)
	}

	return n, nil
}

// TreeToDocument renders the tree below rootID as a document.
//
// A doc root becomes the returned doc node; any other root is wrapped in one.
// Nodes of unknown kind are left out together with their subtrees, as are
// nodes deeper than the store's MaxDepth. Malformed attributes are logged and
// rendered as empty.
func (m *Mapper) TreeToDocument(ctx context.Context, rootID int64) (*Node, error) {
	root, err := m.store.Read(ctx, m.ns, rootID)
	if err != nil {
		return nil, fmt.Errorf("docmap: reading root: %w", err)
	}

	if root == nil {
		return nil, fmt.Errorf("docmap: root %d: %w", rootID, treedb.ErrRecordNotFound)
	}

	if root.Type == treedb.KindDoc {
		return m.render(ctx, *root, 1)
	}

	doc := Doc()
	doc.Content = []*Node{}

	child, err := m.render(ctx, *root, 2)
	if err != nil {
		return nil, err
	}

	if child != nil {
		doc.Content = append(doc.Content, child)
	}

	return doc, nil
}

// render converts n and its subtree. Returns nil for pruned nodes.
func (m *Mapper) render(ctx context.Context, n treedb.Node, depth int) (*Node, error) {
	if depth > m.maxDepth {
		return nil, nil
	}

	switch {
	case n.Type == treedb.KindText:
		var text textPayload

		err := n.DecodeData(&text)
		if err != nil {
			m.warnMalformed(n, "data", err)
		}

		meta := m.decodeTyped(n)

		return &Node{Type: treedb.KindText, Text: text.Text, Marks: meta.Marks}, nil

	case n.Type == treedb.KindHardBreak:
		return &Node{Type: treedb.KindHardBreak}, nil

	case n.Type.IsContainer():
		meta := m.decodeTyped(n)

		out := &Node{Type: n.Type, Attrs: meta.Attrs, Content: []*Node{}}

		children, err := m.children(ctx, n.ID)
		if err != nil {
			return nil, err
		}

		for _, child := range children {
			rendered, renderErr := m.render(ctx, child, depth+1)
			if renderErr != nil {
				return nil, renderErr
			}

			if rendered != nil {
				out.Content = append(out.Content, rendered)
			}
		}

		return out, nil

	default:
		return nil, nil
	}
}

func (m *Mapper) decodeTyped(n treedb.Node) typedPayload {
	var meta typedPayload

	err := n.DecodeDataT(&meta)
	if err != nil {
		m.warnMalformed(n, "data_t", err)

		return typedPayload{}
	}

	return meta
}

func (m *Mapper) warnMalformed(n treedb.Node, column string, err error) {
	m.log.WithFields(logrus.Fields{
		"id":     n.ID,
		"type":   n.Type,
		"column": column,
		"err":    err,
	}).Warn("malformed node payload, rendering as empty")
}

func (m *Mapper) children(ctx context.Context, pid int64) ([]treedb.Node, error) {
	children, err := m.store.Children(ctx, m.ns, pid)
	if err != nil {
		return nil, fmt.Errorf("docmap: children of %d: %w", pid, err)
	}

	return children, nil
}

func (m *Mapper) label(kind treedb.Kind) string {
	if label, ok := m.labels[kind]; ok {
		return label
	}

	return string(kind)
}

func filterKinds(nodes []treedb.Node, kinds ...treedb.Kind) []treedb.Node {
	out := make([]treedb.Node, 0, len(nodes))

	for _, n := range nodes {
		for _, k := range kinds {
			if n.Type == k {
				out = append(out, n)

				break
			}
		}
	}

	return out
}

// documentNodes keeps the nodes that render into a document.
func documentNodes(nodes []treedb.Node) []treedb.Node {
	out := make([]treedb.Node, 0, len(nodes))

	for _, n := range nodes {
		if n.Type.IsContainer() || n.Type.IsInline() {
			out = append(out, n)
		}
	}

	return out
}

func nonNil(nodes []*Node) []*Node {
	out := make([]*Node, 0, len(nodes))

	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}

	return out
}

func replaceSibling(siblings []treedb.Node, n treedb.Node) {
	for i := range siblings {
		if siblings[i].ID == n.ID {
			siblings[i] = n

			return
		}
	}
}

// uniqueName returns name, or name_1, name_2, ... whichever is not taken by
// a sibling.
func uniqueName(siblings []treedb.Node, name string) string {
	taken := make(map[string]struct{}, len(siblings))
	for _, s := range siblings {
		taken[s.Name] = struct{}{}
	}

	if _, ok := taken[name]; !ok {
		return name
	}

	for i := 1; ; i++ {
		candidate := name + "_" + strconv.Itoa(i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// findNamed returns the sibling of kind named name or name_N, scanning the
// same sequence as uniqueName.
func findNamed(siblings []treedb.Node, name string, kind treedb.Kind) *treedb.Node {
	byName := make(map[string]int, len(siblings))
	for i, s := range siblings {
		byName[s.Name] = i
	}

	candidate := name

	for i := 1; ; i++ {
		idx, ok := byName[candidate]
		if !ok {
			return nil
		}

		if siblings[idx].Type == kind {
			return &siblings[idx]
		}

		candidate = name + "_" + strconv.Itoa(i)
	}
}

// MarshalIndent encodes a document the way the CLI prints it.
func MarshalIndent(doc *Node) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("docmap: encoding document: %w", err)
	}

	return out, nil
}
