package author

import "maps"

// Task is a unit of work in a job tree. It runs its commands once all of
// its subtasks are done.
type Task struct {
	node
	attributes

	Title          *StringAttribute
	ID             *StringAttribute
	Service        *StringAttribute
	AtLeast        *IntAttribute
	AtMost         *IntAttribute
	Cmds           *GroupAttribute
	Chaser         *ArgvAttribute
	Preview        *ArgvAttribute
	SerialSubtasks *BooleanAttribute
	ResumeBlock    *BooleanAttribute
	Cleanup        *GroupAttribute
	Metadata       *StringAttribute
	Subtasks       *GroupAttribute
}

// NewTask returns a Task initialised with attrs. An "argv" entry, a string
// or a []string, is not an attribute of the Task but creates a remote
// Command with that argv in the task's commands.
func NewTask(attrs Attrs) (*Task, error) {
	t := &Task{
		node:           newNode(),
		Title:          NewStringAttribute("title", AsRequired(), WithoutKey()),
		ID:             NewStringAttribute("id"),
		Service:        NewStringAttribute("service"),
		AtLeast:        NewIntAttribute("atleast"),
		AtMost:         NewIntAttribute("atmost"),
		Cmds:           newCommands("cmds"),
		Chaser:         NewArgvAttribute("chaser"),
		Preview:        NewArgvAttribute("preview"),
		SerialSubtasks: NewBooleanAttribute("serialsubtasks"),
		ResumeBlock:    NewBooleanAttribute("resumeblock"),
		Cleanup:        newCommands("cleanup"),
		Metadata:       NewStringAttribute("metadata"),
	}
	t.Subtasks = newSubtasks(t)
	t.attributes = newAttributes("Task",
		NewConstant("Task"),
		t.Title, t.ID, t.Service, t.AtLeast, t.AtMost, t.Cmds, t.Chaser,
		t.Preview, t.SerialSubtasks, t.ResumeBlock, t.Cleanup, t.Metadata,
		t.Subtasks,
	)
	argv, hasArgv := attrs["argv"]
	if hasArgv {
		attrs = maps.Clone(attrs)
		delete(attrs, "argv")
	}
	if err := t.setAll(attrs); err != nil {
		return nil, err
	}
	if hasArgv {
		if _, err := t.NewCommand(Attrs{"argv": argv}); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Task) String() string { return titled("Task", t.Title, "<no title>") }

// AddChild adds a Task, Instance or Iterate to the task's subtasks and
// returns the element that was actually inserted.
//
// A Task that already has a parent is not moved. Instead an Instance with
// the same title is created, parented and inserted in its place, and
// returned. An Instance or Iterate that already has a parent is rejected
// with ErrParentExists.
func (t *Task) AddChild(e Element) (Element, error) {
	return adopt(t, t.Subtasks, e)
}

// NewTask creates a Task from attrs and adds it to the task's subtasks.
func (t *Task) NewTask(attrs Attrs) (*Task, error) {
	return newChildTask(t, t.Subtasks, attrs)
}

// AddCommand appends c to the task's commands.
func (t *Task) AddCommand(c *Command) error {
	return t.Cmds.add(c)
}

// NewCommand creates a remote Command from attrs and appends it to the
// task's commands.
func (t *Task) NewCommand(attrs Attrs) (*Command, error) {
	return newChildCommand(t.Cmds, attrs)
}

// AddCleanup appends c to the task's cleanup commands.
func (t *Task) AddCleanup(c *Command) error {
	return t.Cleanup.add(c)
}

// NewCleanup creates a Command from attrs and appends it to the task's
// cleanup commands.
func (t *Task) NewCleanup(attrs Attrs) (*Command, error) {
	return newChildCommand(t.Cleanup, attrs)
}

// Instance stands in for a Task that is already part of the tree
// elsewhere, referring to it by title.
type Instance struct {
	node
	attributes

	Title *StringAttribute
}

// NewInstance returns an Instance initialised with attrs.
func NewInstance(attrs Attrs) (*Instance, error) {
	i := &Instance{
		node:  newNode(),
		Title: NewStringAttribute("title", AsRequired(), WithoutKey()),
	}
	i.attributes = newAttributes("Instance", NewConstant("Instance"), i.Title)
	if err := i.setAll(attrs); err != nil {
		return nil, err
	}
	return i, nil
}

func (i *Instance) String() string { return titled("Instance", i.Title, "<no title>") }

// Iterate expands its template once for every value of varname from
// From to To in steps of By.
type Iterate struct {
	node
	attributes

	VarName  *StringAttribute
	From     *IntAttribute
	To       *IntAttribute
	By       *IntAttribute
	Template *GroupAttribute
	Subtasks *GroupAttribute
}

// NewIterate returns an Iterate initialised with attrs. The "from"
// attribute may also be given as "frm".
func NewIterate(attrs Attrs) (*Iterate, error) {
	it := &Iterate{
		node:     newNode(),
		VarName:  NewStringAttribute("varname", AsRequired(), WithoutKey()),
		From:     NewIntAttribute("from", WithAlias("frm"), AsRequired()),
		To:       NewIntAttribute("to", AsRequired()),
		By:       NewIntAttribute("by"),
	}
	it.Template = newGroupAttribute("template", isSubtask, "Task, Instance, or Iterate", AsRequired())
	it.Template.owner = it
	it.Subtasks = newSubtasks(it)
	it.attributes = newAttributes("Iterate",
		NewConstant("Iterate"),
		it.VarName, it.From, it.To, it.By, it.Template, it.Subtasks,
	)
	if err := it.setAll(attrs); err != nil {
		return nil, err
	}
	return it, nil
}

func (it *Iterate) String() string { return titled("Iterate", it.VarName, "<no iterator>") }

// AddChild adds a Task, Instance or Iterate to the iterate's subtasks.
// See [Task.AddChild].
func (it *Iterate) AddChild(e Element) (Element, error) {
	return adopt(it, it.Subtasks, e)
}

// NewTask creates a Task from attrs and adds it to the iterate's subtasks.
func (it *Iterate) NewTask(attrs Attrs) (*Task, error) {
	return newChildTask(it, it.Subtasks, attrs)
}

// AddToTemplate appends a Task, Instance or Iterate to the template that
// is expanded on every iteration. Template entries are not parented.
func (it *Iterate) AddToTemplate(e Element) error {
	return it.Template.add(e)
}
