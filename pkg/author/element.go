package author

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/xid"
)

// Element is a node of a job tree: a Job, Task, Instance, Iterate, Command
// or DirMap.
//
// Elements do not own their parent. A child only records its parent's
// handle and description; the tree itself is owned top-down through the
// parent's GroupAttributes.
type Element interface {
	fmt.Stringer
	// Handle returns the element's unique identifier.
	Handle() xid.ID
	// ParentHandle returns the handle of the element's parent and
	// whether a parent is set.
	ParentHandle() (xid.ID, bool)

	render(depth int) (string, error)
	base() *node
}

// AttributeSet is implemented by every Element that carries named
// attributes, that is all Elements except DirMap.
type AttributeSet interface {
	Element
	Attribute(name string) (Attribute, error)
	Attributes() []Attribute
	Set(name string, v any) error
	Get(name string) (any, error)
}

// Attrs holds attribute values by attribute name or alias, used to
// initialise Elements on construction.
type Attrs map[string]any

type node struct {
	id         xid.ID
	parent     xid.ID
	parentName string
}

func newNode() node {
	return node{id: xid.New()}
}

func (n *node) Handle() xid.ID { return n.id }

func (n *node) ParentHandle() (xid.ID, bool) {
	return n.parent, !n.parent.IsNil()
}

func (n *node) hasParent() bool { return !n.parent.IsNil() }

func (n *node) setParent(p Element) {
	n.parent = p.Handle()
	n.parentName = p.String()
}

func (n *node) clearParent() {
	n.parent = xid.ID{}
	n.parentName = ""
}

func (n *node) base() *node { return n }

// attributes is the ordered descriptor table of an Element. Render order
// is declaration order; lookup is by name or alias.
type attributes struct {
	kind   string
	list   []Attribute
	byName map[string]Attribute
}

func newAttributes(kind string, list ...Attribute) attributes {
	a := attributes{kind: kind, list: list, byName: map[string]Attribute{}}
	for _, attr := range list {
		if attr.Kind() == KindConstant {
			continue
		}
		a.byName[attr.Name()] = attr
		if alias := attr.Alias(); alias != "" {
			a.byName[alias] = attr
		}
	}
	return a
}

// Attribute returns the attribute registered under name or alias.
func (a *attributes) Attribute(name string) (Attribute, error) {
	attr, ok := a.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a valid attribute of a %s", ErrUnknownAttribute, name, a.kind)
	}
	return attr, nil
}

// Attributes returns the attributes in declaration order, excluding the
// type tag.
func (a *attributes) Attributes() []Attribute {
	result := make([]Attribute, 0, len(a.list))
	for _, attr := range a.list {
		if attr.Kind() != KindConstant {
			result = append(result, attr)
		}
	}
	return result
}

// Set assigns v to the attribute registered under name or alias.
func (a *attributes) Set(name string, v any) error {
	attr, err := a.Attribute(name)
	if err != nil {
		return err
	}
	return attr.SetValue(v)
}

// Get returns the value of the attribute registered under name or alias,
// nil if it is unset.
func (a *attributes) Get(name string) (any, error) {
	attr, err := a.Attribute(name)
	if err != nil {
		return nil, err
	}
	return attr.Value(), nil
}

// setAll applies attrs in sorted key order.
func (a *attributes) setAll(attrs Attrs) error {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := a.Set(k, attrs[k]); err != nil {
			return err
		}
	}
	return nil
}

func (a *attributes) render(depth int) (string, error) {
	var sb strings.Builder
	for _, attr := range a.list {
		s, err := attr.Render(depth)
		if err != nil {
			return "", err
		}
		sb.WriteString(s)
	}
	return sb.String(), nil
}

// titled returns "<kind> <value>" for a string attribute, using fallback
// when it is unset.
func titled(kind string, attr *StringAttribute, fallback string) string {
	if s, ok := attr.Get(); ok {
		return kind + " " + s
	}
	return kind + " " + fallback
}

func isSubtask(e Element) bool {
	switch e.(type) {
	case *Task, *Instance, *Iterate:
		return true
	}
	return false
}

func isCommand(e Element) bool {
	_, ok := e.(*Command)
	return ok
}

func isDirMap(e Element) bool {
	_, ok := e.(*DirMap)
	return ok
}

func newSubtasks(owner Element, opts ...AttrOption) *GroupAttribute {
	g := newGroupAttribute("subtasks", isSubtask, "Task, Instance, or Iterate", opts...)
	g.owner = owner
	g.adopts = true
	return g
}

// contains reports whether an element with handle h is e or lies in the
// subtree below e.
func contains(e Element, h xid.ID) bool {
	if e.Handle() == h {
		return true
	}
	set, ok := e.(AttributeSet)
	if !ok {
		return false
	}
	for _, attr := range set.Attributes() {
		group, ok := attr.(*GroupAttribute)
		if !ok {
			continue
		}
		for _, child := range group.children {
			if contains(child, h) {
				return true
			}
		}
	}
	return false
}

func newCommands(name string) *GroupAttribute {
	return newGroupAttribute(name, isCommand, "Command")
}
