package author

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant of an Attribute.
type Kind int

// Attribute kinds.
const (
	KindConstant Kind = iota
	KindInt
	KindFloat
	KindDate
	KindString
	KindEnum
	KindStringList
	KindIntList
	KindArgv
	KindBool
	KindGroup
)

// dateLayout is the month/day/hour:minute layout the engine expects for
// dates such as a job's -after attribute.
const dateLayout = "01 02 15:04"

// Attribute is a named, typed value holder of an Element.
//
// Values are validated on assignment; whether a required attribute has a
// value is only checked when the attribute is rendered.
type Attribute interface {
	Name() string
	Alias() string
	Required() bool
	Kind() Kind
	HasValue() bool
	Value() any
	// SetValue assigns v after validating it for the attribute's kind.
	// A nil v clears the attribute.
	SetValue(v any) error
	// CheckRequired returns an ErrRequiredValue error if the attribute is
	// required and has no value.
	CheckRequired() error
	// Render returns the attribute's job script fragment, or an empty
	// string if it has no value. Group attributes render their children
	// one level deeper than depth.
	Render(depth int) (string, error)
}

// AttrOption configures an attribute on construction.
type AttrOption func(*attr)

// WithAlias registers an alternative name for the attribute.
func WithAlias(alias string) AttrOption {
	return func(a *attr) {
		a.alias = alias
	}
}

// AsRequired marks the attribute as required at render time.
func AsRequired() AttrOption {
	return func(a *attr) {
		a.required = true
	}
}

// WithoutKey renders the attribute's value without its " -name" key.
func WithoutKey() AttrOption {
	return func(a *attr) {
		a.suppressKey = true
	}
}

// attr holds what all attribute variants have in common.
type attr struct {
	name        string
	alias       string
	required    bool
	suppressKey bool
}

func newAttr(name string, opts []AttrOption) attr {
	a := attr{name: name}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

func (a *attr) Name() string   { return a.name }
func (a *attr) Alias() string  { return a.alias }
func (a *attr) Required() bool { return a.required }

// key returns the " -name" prefix of the rendered attribute.
func (a *attr) key() string {
	if a.suppressKey {
		return ""
	}
	return " -" + a.name
}

func (a *attr) checkRequired(hasValue bool) error {
	if a.required && !hasValue {
		return fmt.Errorf("%w: a value is required for %s", ErrRequiredValue, a.name)
	}
	return nil
}

func (a *attr) typeError(v any) error {
	return fmt.Errorf("%w: %v (%T) is not a valid value for %s", ErrType, v, v, a.name)
}

// Constant is a fixed value rendered without a key, such as an element's
// type tag.
type Constant struct {
	attr
	value string
}

// NewConstant returns a Constant holding value.
func NewConstant(value string) *Constant {
	return &Constant{attr: attr{suppressKey: true}, value: value}
}

func (a *Constant) Kind() Kind                 { return KindConstant }
func (a *Constant) HasValue() bool             { return a.value != "" }
func (a *Constant) Value() any                 { return a.value }
func (a *Constant) CheckRequired() error       { return nil }
func (a *Constant) Render(int) (string, error) { return a.value, nil }

// SetValue always fails, constants cannot be reassigned.
func (a *Constant) SetValue(v any) error {
	return fmt.Errorf("%w: constant %q cannot be set to %v", ErrType, a.value, v)
}

// IntAttribute holds an integer.
type IntAttribute struct {
	attr
	value *int
}

// NewIntAttribute returns an unset IntAttribute.
func NewIntAttribute(name string, opts ...AttrOption) *IntAttribute {
	return &IntAttribute{attr: newAttr(name, opts)}
}

func (a *IntAttribute) Kind() Kind           { return KindInt }
func (a *IntAttribute) HasValue() bool       { return a.value != nil }
func (a *IntAttribute) CheckRequired() error { return a.checkRequired(a.HasValue()) }

// Set assigns v.
func (a *IntAttribute) Set(v int) { a.value = &v }

// Clear unsets the attribute.
func (a *IntAttribute) Clear() { a.value = nil }

// Get returns the value and whether it is set.
func (a *IntAttribute) Get() (int, bool) {
	if a.value == nil {
		return 0, false
	}
	return *a.value, true
}

func (a *IntAttribute) Value() any {
	if a.value == nil {
		return nil
	}
	return *a.value
}

func (a *IntAttribute) SetValue(v any) error {
	if v == nil {
		a.Clear()
		return nil
	}
	i, ok := toInt(v)
	if !ok {
		return a.typeError(v)
	}
	a.Set(i)
	return nil
}

func (a *IntAttribute) Render(int) (string, error) {
	if err := a.CheckRequired(); err != nil {
		return "", err
	}
	if a.value == nil {
		return "", nil
	}
	return a.key() + " " + strconv.Itoa(*a.value), nil
}

// FloatAttribute holds a float rendered with a fixed number of decimals.
type FloatAttribute struct {
	attr
	precision int
	value     *float64
}

// NewFloatAttribute returns an unset FloatAttribute rendering precision
// decimals.
func NewFloatAttribute(name string, precision int, opts ...AttrOption) *FloatAttribute {
	return &FloatAttribute{attr: newAttr(name, opts), precision: precision}
}

func (a *FloatAttribute) Kind() Kind           { return KindFloat }
func (a *FloatAttribute) HasValue() bool       { return a.value != nil }
func (a *FloatAttribute) CheckRequired() error { return a.checkRequired(a.HasValue()) }

// Set assigns v.
func (a *FloatAttribute) Set(v float64) { a.value = &v }

// Clear unsets the attribute.
func (a *FloatAttribute) Clear() { a.value = nil }

// Get returns the value and whether it is set.
func (a *FloatAttribute) Get() (float64, bool) {
	if a.value == nil {
		return 0, false
	}
	return *a.value, true
}

func (a *FloatAttribute) Value() any {
	if a.value == nil {
		return nil
	}
	return *a.value
}

func (a *FloatAttribute) SetValue(v any) error {
	switch f := v.(type) {
	case nil:
		a.Clear()
	case float64:
		a.Set(f)
	case float32:
		a.Set(float64(f))
	default:
		i, ok := toInt(v)
		if !ok {
			return a.typeError(v)
		}
		a.Set(float64(i))
	}
	return nil
}

func (a *FloatAttribute) Render(int) (string, error) {
	if err := a.CheckRequired(); err != nil {
		return "", err
	}
	if a.value == nil {
		return "", nil
	}
	return a.key() + " {" + strconv.FormatFloat(*a.value, 'f', a.precision, 64) + "}", nil
}

// DateAttribute holds a point in time.
type DateAttribute struct {
	attr
	value *time.Time
}

// NewDateAttribute returns an unset DateAttribute.
func NewDateAttribute(name string, opts ...AttrOption) *DateAttribute {
	return &DateAttribute{attr: newAttr(name, opts)}
}

func (a *DateAttribute) Kind() Kind           { return KindDate }
func (a *DateAttribute) HasValue() bool       { return a.value != nil }
func (a *DateAttribute) CheckRequired() error { return a.checkRequired(a.HasValue()) }

// Set assigns t.
func (a *DateAttribute) Set(t time.Time) { a.value = &t }

// Clear unsets the attribute.
func (a *DateAttribute) Clear() { a.value = nil }

// Get returns the value and whether it is set.
func (a *DateAttribute) Get() (time.Time, bool) {
	if a.value == nil {
		return time.Time{}, false
	}
	return *a.value, true
}

func (a *DateAttribute) Value() any {
	if a.value == nil {
		return nil
	}
	return *a.value
}

func (a *DateAttribute) SetValue(v any) error {
	switch t := v.(type) {
	case nil:
		a.Clear()
	case time.Time:
		a.Set(t)
	case *time.Time:
		if t == nil {
			a.Clear()
			return nil
		}
		a.Set(*t)
	default:
		return a.typeError(v)
	}
	return nil
}

func (a *DateAttribute) Render(int) (string, error) {
	if err := a.CheckRequired(); err != nil {
		return "", err
	}
	if a.value == nil {
		return "", nil
	}
	return a.key() + " {" + a.value.Format(dateLayout) + "}", nil
}

// StringAttribute holds a string.
type StringAttribute struct {
	attr
	value *string
}

// NewStringAttribute returns an unset StringAttribute.
func NewStringAttribute(name string, opts ...AttrOption) *StringAttribute {
	return &StringAttribute{attr: newAttr(name, opts)}
}

func (a *StringAttribute) Kind() Kind           { return KindString }
func (a *StringAttribute) HasValue() bool       { return a.value != nil }
func (a *StringAttribute) CheckRequired() error { return a.checkRequired(a.HasValue()) }

// Set assigns s.
func (a *StringAttribute) Set(s string) { a.value = &s }

// Clear unsets the attribute.
func (a *StringAttribute) Clear() { a.value = nil }

// Get returns the value and whether it is set.
func (a *StringAttribute) Get() (string, bool) {
	if a.value == nil {
		return "", false
	}
	return *a.value, true
}

func (a *StringAttribute) Value() any {
	if a.value == nil {
		return nil
	}
	return *a.value
}

func (a *StringAttribute) SetValue(v any) error {
	switch s := v.(type) {
	case nil:
		a.Clear()
	case string:
		a.Set(s)
	default:
		return a.typeError(v)
	}
	return nil
}

func (a *StringAttribute) Render(int) (string, error) {
	if err := a.CheckRequired(); err != nil {
		return "", err
	}
	if a.value == nil {
		return "", nil
	}
	return a.key() + " {" + *a.value + "}", nil
}

// EnumAttribute is a StringAttribute restricted to a fixed set of values.
type EnumAttribute struct {
	StringAttribute
	allowed []string
}

// NewEnumAttribute returns an unset EnumAttribute accepting only the
// allowed values.
func NewEnumAttribute(name string, allowed []string, opts ...AttrOption) *EnumAttribute {
	return &EnumAttribute{
		StringAttribute: StringAttribute{attr: newAttr(name, opts)},
		allowed:         slices.Clone(allowed),
	}
}

func (a *EnumAttribute) Kind() Kind { return KindEnum }

// Allowed returns the accepted values.
func (a *EnumAttribute) Allowed() []string { return slices.Clone(a.allowed) }

// Set assigns s if it is one of the allowed values.
func (a *EnumAttribute) Set(s string) error {
	if !slices.Contains(a.allowed, s) {
		return fmt.Errorf("%w: %q is not a valid value for %s, must be one of %s",
			ErrType, s, a.name, strings.Join(a.allowed, ", "))
	}
	a.StringAttribute.Set(s)
	return nil
}

func (a *EnumAttribute) SetValue(v any) error {
	switch s := v.(type) {
	case nil:
		a.Clear()
		return nil
	case string:
		return a.Set(s)
	default:
		return a.typeError(v)
	}
}

// StringListAttribute holds a list of strings.
type StringListAttribute struct {
	attr
	value []string
}

// NewStringListAttribute returns an empty StringListAttribute.
func NewStringListAttribute(name string, opts ...AttrOption) *StringListAttribute {
	return &StringListAttribute{attr: newAttr(name, opts)}
}

func (a *StringListAttribute) Kind() Kind           { return KindStringList }
func (a *StringListAttribute) HasValue() bool       { return len(a.value) > 0 }
func (a *StringListAttribute) CheckRequired() error { return a.checkRequired(a.HasValue()) }

// Set assigns a copy of v.
func (a *StringListAttribute) Set(v []string) { a.value = slices.Clone(v) }

// Clear unsets the attribute.
func (a *StringListAttribute) Clear() { a.value = nil }

// Get returns a copy of the list.
func (a *StringListAttribute) Get() []string { return slices.Clone(a.value) }

func (a *StringListAttribute) Value() any {
	if a.value == nil {
		return nil
	}
	return slices.Clone(a.value)
}

func (a *StringListAttribute) SetValue(v any) error {
	switch l := v.(type) {
	case nil:
		a.Clear()
	case []string:
		a.Set(l)
	default:
		return a.typeError(v)
	}
	return nil
}

func (a *StringListAttribute) Render(int) (string, error) {
	if err := a.CheckRequired(); err != nil {
		return "", err
	}
	if len(a.value) == 0 {
		return "", nil
	}
	tokens := make([]string, len(a.value))
	for i, s := range a.value {
		tokens[i] = "{" + strings.ReplaceAll(s, `\`, `\\`) + "}"
	}
	return a.key() + " {" + strings.Join(tokens, " ") + "}", nil
}

// ArgvAttribute is a StringListAttribute that also accepts a single string,
// which is split on whitespace.
type ArgvAttribute struct {
	StringListAttribute
}

// NewArgvAttribute returns an empty ArgvAttribute.
func NewArgvAttribute(name string, opts ...AttrOption) *ArgvAttribute {
	return &ArgvAttribute{StringListAttribute{attr: newAttr(name, opts)}}
}

func (a *ArgvAttribute) Kind() Kind { return KindArgv }

// SetString tokenizes s on whitespace and assigns the tokens.
func (a *ArgvAttribute) SetString(s string) { a.value = strings.Fields(s) }

func (a *ArgvAttribute) SetValue(v any) error {
	switch l := v.(type) {
	case nil:
		a.Clear()
	case string:
		a.SetString(l)
	case []string:
		a.Set(l)
	default:
		return a.typeError(v)
	}
	return nil
}

// IntListAttribute holds a list of integers.
type IntListAttribute struct {
	attr
	value []int
}

// NewIntListAttribute returns an empty IntListAttribute.
func NewIntListAttribute(name string, opts ...AttrOption) *IntListAttribute {
	return &IntListAttribute{attr: newAttr(name, opts)}
}

func (a *IntListAttribute) Kind() Kind           { return KindIntList }
func (a *IntListAttribute) HasValue() bool       { return len(a.value) > 0 }
func (a *IntListAttribute) CheckRequired() error { return a.checkRequired(a.HasValue()) }

// Set assigns a copy of v.
func (a *IntListAttribute) Set(v []int) { a.value = slices.Clone(v) }

// Clear unsets the attribute.
func (a *IntListAttribute) Clear() { a.value = nil }

// Get returns a copy of the list.
func (a *IntListAttribute) Get() []int { return slices.Clone(a.value) }

func (a *IntListAttribute) Value() any {
	if a.value == nil {
		return nil
	}
	return slices.Clone(a.value)
}

func (a *IntListAttribute) SetValue(v any) error {
	switch l := v.(type) {
	case nil:
		a.Clear()
	case []int:
		a.Set(l)
	default:
		return a.typeError(v)
	}
	return nil
}

func (a *IntListAttribute) Render(int) (string, error) {
	if err := a.CheckRequired(); err != nil {
		return "", err
	}
	if len(a.value) == 0 {
		return "", nil
	}
	tokens := make([]string, len(a.value))
	for i, n := range a.value {
		tokens[i] = strconv.Itoa(n)
	}
	return a.key() + " {" + strings.Join(tokens, " ") + "}", nil
}

// BooleanAttribute holds a flag rendered as 0 or 1.
type BooleanAttribute struct {
	attr
	value *bool
}

// NewBooleanAttribute returns an unset BooleanAttribute.
func NewBooleanAttribute(name string, opts ...AttrOption) *BooleanAttribute {
	return &BooleanAttribute{attr: newAttr(name, opts)}
}

func (a *BooleanAttribute) Kind() Kind           { return KindBool }
func (a *BooleanAttribute) HasValue() bool       { return a.value != nil }
func (a *BooleanAttribute) CheckRequired() error { return a.checkRequired(a.HasValue()) }

// Set assigns b.
func (a *BooleanAttribute) Set(b bool) { a.value = &b }

// Clear unsets the attribute.
func (a *BooleanAttribute) Clear() { a.value = nil }

// Get returns the value and whether it is set.
func (a *BooleanAttribute) Get() (bool, bool) {
	if a.value == nil {
		return false, false
	}
	return *a.value, true
}

func (a *BooleanAttribute) Value() any {
	if a.value == nil {
		return nil
	}
	return *a.value
}

// SetValue accepts a bool or one of the integers 0 and 1.
func (a *BooleanAttribute) SetValue(v any) error {
	if v == nil {
		a.Clear()
		return nil
	}
	if b, ok := v.(bool); ok {
		a.Set(b)
		return nil
	}
	i, ok := toInt(v)
	if !ok || (i != 0 && i != 1) {
		return a.typeError(v)
	}
	a.Set(i == 1)
	return nil
}

func (a *BooleanAttribute) Render(int) (string, error) {
	if err := a.CheckRequired(); err != nil {
		return "", err
	}
	if a.value == nil {
		return "", nil
	}
	if *a.value {
		return a.key() + " 1", nil
	}
	return a.key() + " 0", nil
}

// GroupAttribute owns an ordered sequence of child Elements, such as a
// job's subtasks or a task's commands.
type GroupAttribute struct {
	attr
	children []Element
	accepts  func(Element) bool
	owner    Element // element holding a group of subtasks
	adopts   bool
	accepted string
}

// newGroupAttribute returns an empty group admitting elements for which
// accepts returns true; accepted describes them for error messages.
func newGroupAttribute(name string, accepts func(Element) bool, accepted string, opts ...AttrOption) *GroupAttribute {
	return &GroupAttribute{attr: newAttr(name, opts), accepts: accepts, accepted: accepted}
}

func (a *GroupAttribute) Kind() Kind           { return KindGroup }
func (a *GroupAttribute) HasValue() bool       { return len(a.children) > 0 }
func (a *GroupAttribute) CheckRequired() error { return a.checkRequired(a.HasValue()) }

// Len returns the number of children.
func (a *GroupAttribute) Len() int { return len(a.children) }

// Item returns the i'th child.
func (a *GroupAttribute) Item(i int) Element { return a.children[i] }

// Elements returns a copy of the children.
func (a *GroupAttribute) Elements() []Element { return slices.Clone(a.children) }

func (a *GroupAttribute) Value() any {
	if a.children == nil {
		return nil
	}
	return a.Elements()
}

// Accepts reports whether e may be added to the group.
func (a *GroupAttribute) Accepts(e Element) bool { return e != nil && a.accepts(e) }

// add appends e after checking that the group admits it.
func (a *GroupAttribute) add(e Element) error {
	if err := a.check(e); err != nil {
		return err
	}
	a.children = append(a.children, e)
	return nil
}

func (a *GroupAttribute) check(e Element) error {
	if !a.Accepts(e) {
		return fmt.Errorf("%w: %v is not an instance of %s", ErrType, e, a.accepted)
	}
	if a.owner != nil && contains(e, a.owner.Handle()) {
		return fmt.Errorf("%w: %v cannot be added below itself", ErrParentExists, e)
	}
	return nil
}

// SetValue replaces the children with a []Element, each of which must be
// admitted by the group. Subtasks are adopted as by AddChild, so a Task
// that already has another parent is replaced by an Instance. If any
// element is refused the group is left unchanged.
func (a *GroupAttribute) SetValue(v any) error {
	if a.adopts {
		return a.replaceSubtasks(v)
	}
	switch l := v.(type) {
	case nil:
		a.children = nil
	case []Element:
		for _, e := range l {
			if err := a.check(e); err != nil {
				return err
			}
		}
		a.children = slices.Clone(l)
	default:
		return a.typeError(v)
	}
	return nil
}

func (a *GroupAttribute) replaceSubtasks(v any) error {
	var l []Element
	switch v := v.(type) {
	case nil:
	case []Element:
		l = v
	default:
		return a.typeError(v)
	}
	old := a.children
	for _, c := range old {
		c.base().clearParent()
	}
	a.children = nil
	for _, e := range l {
		if _, err := adopt(a.owner, a, e); err != nil {
			for _, c := range a.children {
				c.base().clearParent()
			}
			a.children = old
			for _, c := range old {
				c.base().setParent(a.owner)
			}
			return err
		}
	}
	return nil
}

func (a *GroupAttribute) Render(depth int) (string, error) {
	if err := a.CheckRequired(); err != nil {
		return "", err
	}
	if len(a.children) == 0 {
		return "", nil
	}
	lines := make([]string, len(a.children))
	for i, child := range a.children {
		s, err := child.render(depth + 1)
		if err != nil {
			return "", err
		}
		lines[i] = indent(depth+1) + s
	}
	return " -" + a.name + " {\n" + strings.Join(lines, "\n") + "\n" + indent(depth) + "}", nil
}

// toInt converts any Go integer to int, failing for values out of range.
func toInt(v any) (int, bool) {
	switch i := v.(type) {
	case int:
		return i, true
	case int8:
		return int(i), true
	case int16:
		return int(i), true
	case int32:
		return int(i), true
	case int64:
		if i > math.MaxInt || i < math.MinInt {
			return 0, false
		}
		return int(i), true
	case uint:
		if i > math.MaxInt {
			return 0, false
		}
		return int(i), true
	case uint8:
		return int(i), true
	case uint16:
		return int(i), true
	case uint32:
		if uint64(i) > math.MaxInt {
			return 0, false
		}
		return int(i), true
	case uint64:
		if i > math.MaxInt {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
