package author

import "strings"

// When values of a Command.
const (
	WhenDone   = "done"
	WhenError  = "error"
	WhenAlways = "always"
)

// Command is an executable invocation. Remote commands run on a blade
// chosen by the engine; local commands run on the spooling host.
type Command struct {
	node
	attributes
	local bool

	Argv        *ArgvAttribute
	Msg         *StringAttribute
	Tags        *StringListAttribute
	Service     *StringAttribute
	Metrics     *StringAttribute
	ID          *StringAttribute
	RefersTo    *StringAttribute
	Expand      *BooleanAttribute
	AtLeast     *IntAttribute
	AtMost      *IntAttribute
	MinRunSecs  *IntAttribute
	MaxRunSecs  *IntAttribute
	SameHost    *BooleanAttribute
	EnvKey      *StringListAttribute
	RetryRC     *IntListAttribute
	When        *EnumAttribute
	ResumeWhile *StringListAttribute
	ResumePin   *BooleanAttribute
	Metadata    *StringAttribute
}

// NewCommand returns a remote command initialised with attrs.
func NewCommand(attrs Attrs) (*Command, error) {
	return newCommand(false, attrs)
}

// NewLocalCommand returns a local command initialised with attrs.
func NewLocalCommand(attrs Attrs) (*Command, error) {
	return newCommand(true, attrs)
}

func newCommand(local bool, attrs Attrs) (*Command, error) {
	c := &Command{
		node:        newNode(),
		local:       local,
		Argv:        NewArgvAttribute("argv", AsRequired()),
		Msg:         NewStringAttribute("msg"),
		Tags:        NewStringListAttribute("tags"),
		Service:     NewStringAttribute("service"),
		Metrics:     NewStringAttribute("metrics"),
		ID:          NewStringAttribute("id"),
		RefersTo:    NewStringAttribute("refersto"),
		Expand:      NewBooleanAttribute("expand"),
		AtLeast:     NewIntAttribute("atleast"),
		AtMost:      NewIntAttribute("atmost"),
		MinRunSecs:  NewIntAttribute("minrunsecs"),
		MaxRunSecs:  NewIntAttribute("maxrunsecs"),
		SameHost:    NewBooleanAttribute("samehost"),
		EnvKey:      NewStringListAttribute("envkey"),
		RetryRC:     NewIntListAttribute("retryrc"),
		When:        NewEnumAttribute("when", []string{WhenDone, WhenError, WhenAlways}),
		ResumeWhile: NewStringListAttribute("resumewhile"),
		ResumePin:   NewBooleanAttribute("resumepin"),
		Metadata:    NewStringAttribute("metadata"),
	}
	tag := c.typeTag()
	c.attributes = newAttributes(tag,
		NewConstant(tag),
		c.Argv, c.Msg, c.Tags, c.Service, c.Metrics, c.ID, c.RefersTo, c.Expand,
		c.AtLeast, c.AtMost, c.MinRunSecs, c.MaxRunSecs, c.SameHost, c.EnvKey,
		c.RetryRC, c.When, c.ResumeWhile, c.ResumePin, c.Metadata,
	)
	if err := c.setAll(attrs); err != nil {
		return nil, err
	}
	return c, nil
}

// IsLocal reports whether the command runs on the spooling host.
func (c *Command) IsLocal() bool { return c.local }

func (c *Command) typeTag() string {
	if c.local {
		return "Command"
	}
	return "RemoteCmd"
}

func (c *Command) String() string {
	argv := c.Argv.Get()
	if len(argv) == 0 {
		return c.typeTag() + " <no argv>"
	}
	return c.typeTag() + " " + strings.Join(argv, " ")
}
