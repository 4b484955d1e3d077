package author

// Job is the root element of a job tree. It carries the job-wide
// attributes and the top level tasks, directory mappings and cleanup and
// postscript commands.
type Job struct {
	node
	attributes

	Title          *StringAttribute
	Tier           *StringAttribute
	SpoolCwd       *StringAttribute
	Projects       *StringListAttribute
	Crews          *StringListAttribute
	MaxActive      *IntAttribute
	Paused         *BooleanAttribute
	After          *DateAttribute
	AfterJids      *IntListAttribute
	Init           *GroupAttribute
	AtLeast        *IntAttribute
	AtMost         *IntAttribute
	EtaLevel       *IntAttribute
	Tags           *StringListAttribute
	Priority       *FloatAttribute
	Service        *StringAttribute
	EnvKey         *StringListAttribute
	Comment        *StringAttribute
	Metadata       *StringAttribute
	EditPolicy     *StringAttribute
	Cleanup        *GroupAttribute
	Postscript     *GroupAttribute
	DirMaps        *GroupAttribute
	SerialSubtasks *BooleanAttribute
	Subtasks       *GroupAttribute
}

// NewJob returns a Job initialised with attrs.
func NewJob(attrs Attrs) (*Job, error) {
	j := &Job{
		node:           newNode(),
		Title:          NewStringAttribute("title", AsRequired()),
		Tier:           NewStringAttribute("tier"),
		SpoolCwd:       NewStringAttribute("spoolcwd"),
		Projects:       NewStringListAttribute("projects"),
		Crews:          NewStringListAttribute("crews"),
		MaxActive:      NewIntAttribute("maxactive"),
		Paused:         NewBooleanAttribute("paused"),
		After:          NewDateAttribute("after"),
		AfterJids:      NewIntListAttribute("afterjids"),
		Init:           newCommands("init"),
		AtLeast:        NewIntAttribute("atleast"),
		AtMost:         NewIntAttribute("atmost"),
		EtaLevel:       NewIntAttribute("etalevel"),
		Tags:           NewStringListAttribute("tags"),
		Priority:       NewFloatAttribute("priority", 1),
		Service:        NewStringAttribute("service"),
		EnvKey:         NewStringListAttribute("envkey"),
		Comment:        NewStringAttribute("comment"),
		Metadata:       NewStringAttribute("metadata"),
		EditPolicy:     NewStringAttribute("editpolicy"),
		Cleanup:        newCommands("cleanup"),
		Postscript:     newCommands("postscript"),
		DirMaps:        newGroupAttribute("dirmaps", isDirMap, "DirMap"),
		SerialSubtasks: NewBooleanAttribute("serialsubtasks"),
	}
	j.Subtasks = newSubtasks(j, AsRequired())
	j.attributes = newAttributes("Job",
		NewConstant("Job"),
		j.Title, j.Tier, j.SpoolCwd, j.Projects, j.Crews, j.MaxActive, j.Paused,
		j.After, j.AfterJids, j.Init, j.AtLeast, j.AtMost, j.EtaLevel, j.Tags,
		j.Priority, j.Service, j.EnvKey, j.Comment, j.Metadata, j.EditPolicy,
		j.Cleanup, j.Postscript, j.DirMaps, j.SerialSubtasks, j.Subtasks,
	)
	if err := j.setAll(attrs); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Job) String() string { return titled("Job", j.Title, "<no title>") }

// AddChild adds a Task, Instance or Iterate to the job's subtasks and
// returns the element that was actually inserted. See [Task.AddChild].
func (j *Job) AddChild(e Element) (Element, error) {
	return adopt(j, j.Subtasks, e)
}

// NewTask creates a Task from attrs and adds it to the job's subtasks.
func (j *Job) NewTask(attrs Attrs) (*Task, error) {
	return newChildTask(j, j.Subtasks, attrs)
}

// AddCleanup appends c to the job's cleanup commands.
func (j *Job) AddCleanup(c *Command) error {
	return j.Cleanup.add(c)
}

// NewCleanup creates a Command from attrs and appends it to the job's
// cleanup commands.
func (j *Job) NewCleanup(attrs Attrs) (*Command, error) {
	return newChildCommand(j.Cleanup, attrs)
}

// AddPostscript appends c to the job's postscript commands.
func (j *Job) AddPostscript(c *Command) error {
	return j.Postscript.add(c)
}

// NewPostscript creates a Command from attrs and appends it to the job's
// postscript commands.
func (j *Job) NewPostscript(attrs Attrs) (*Command, error) {
	return newChildCommand(j.Postscript, attrs)
}

// NewDirMap creates a DirMap and appends it to the job's directory
// mappings.
func (j *Job) NewDirMap(src, dst, zone string) (*DirMap, error) {
	d := NewDirMap(src, dst, zone)
	if err := j.DirMaps.add(d); err != nil {
		return nil, err
	}
	return d, nil
}

// DirMap maps a path prefix between two operating systems within a zone,
// for example "UNC" or "NFS".
type DirMap struct {
	node
	Src  string
	Dst  string
	Zone string
}

// NewDirMap returns a DirMap.
func NewDirMap(src, dst, zone string) *DirMap {
	return &DirMap{node: newNode(), Src: src, Dst: dst, Zone: zone}
}

func (d *DirMap) String() string { return "DirMap " + d.Src + " " + d.Dst }

func (d *DirMap) render(int) (string, error) {
	return "{{" + d.Src + "} {" + d.Dst + "} " + d.Zone + "}", nil
}
