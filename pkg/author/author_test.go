package author_test

import (
	"math"
	"testing"
	"time"

	"github.com/juliaogris/tractor/pkg/author"
	"github.com/stretchr/testify/require"
)

func TestRenderTwoLayerJob(t *testing.T) {
	t.Parallel()
	job, err := author.NewJob(author.Attrs{"title": "two layer job", "priority": 10})
	require.NoError(t, err)
	_, err = job.NewTask(author.Attrs{"title": "comp", "argv": "comp fg.tif bg.tif final.tif"})
	require.NoError(t, err)

	got, err := author.Render(job)
	require.NoError(t, err)
	want := `Job -title {two layer job} -priority {10.0} -subtasks {
  Task {comp} -cmds {
    RemoteCmd -argv {{comp} {fg.tif} {bg.tif} {final.tif}}
  }
}`
	require.Equal(t, want, got)

	again, err := author.Render(job)
	require.NoError(t, err)
	require.Equal(t, got, again)
}

func TestRenderDeterministic(t *testing.T) {
	t.Parallel()
	build := func() string {
		job, err := author.NewJob(author.Attrs{
			"title":     "deterministic",
			"crews":     []string{"lighting", "fx"},
			"paused":    true,
			"maxactive": 3,
			"envkey":    []string{`C:\show`},
		})
		require.NoError(t, err)
		parent, err := job.NewTask(author.Attrs{"title": "parent", "service": "PixarRender"})
		require.NoError(t, err)
		_, err = parent.NewTask(author.Attrs{"title": "child", "argv": []string{"sleep", "1"}})
		require.NoError(t, err)
		_, err = job.NewDirMap("/show", "S:/show", "UNC")
		require.NoError(t, err)
		_, err = job.NewCleanup(author.Attrs{"argv": "rm -rf /tmp/x"})
		require.NoError(t, err)
		s, err := author.Render(job)
		require.NoError(t, err)
		return s
	}
	first := build()
	require.Equal(t, first, build())
	require.Contains(t, first, ` -crews {{lighting} {fx}}`)
	require.Contains(t, first, ` -envkey {{C:\\show}}`)
	require.Contains(t, first, ` -paused 1`)
	require.Contains(t, first, ` -maxactive 3`)
	require.Contains(t, first, "\n    Task {child} -cmds {\n      RemoteCmd -argv {{sleep} {1}}\n    }\n  }")
	require.Contains(t, first, " -dirmaps {\n  {{/show} {S:/show} UNC}\n}")
	require.Contains(t, first, " -cleanup {\n  RemoteCmd -argv {{rm} {-rf} {/tmp/x}}\n}")
}

func TestRenderRequiredValue(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		build func(t *testing.T) (author.Element, func())
	}{
		"job title": {
			build: func(t *testing.T) (author.Element, func()) {
				t.Helper()
				job, err := author.NewJob(nil)
				require.NoError(t, err)
				_, err = job.NewTask(author.Attrs{"title": "t"})
				require.NoError(t, err)
				return job, func() { job.Title.Set("now titled") }
			},
		},
		"job subtasks": {
			build: func(t *testing.T) (author.Element, func()) {
				t.Helper()
				job, err := author.NewJob(author.Attrs{"title": "empty"})
				require.NoError(t, err)
				return job, func() {
					_, err := job.NewTask(author.Attrs{"title": "t"})
					require.NoError(t, err)
				}
			},
		},
		"task title": {
			build: func(t *testing.T) (author.Element, func()) {
				t.Helper()
				task, err := author.NewTask(nil)
				require.NoError(t, err)
				return task, func() { require.NoError(t, task.Set("title", "x")) }
			},
		},
		"command argv": {
			build: func(t *testing.T) (author.Element, func()) {
				t.Helper()
				cmd, err := author.NewCommand(nil)
				require.NoError(t, err)
				return cmd, func() { cmd.Argv.Set([]string{"true"}) }
			},
		},
		"iterate bounds": {
			build: func(t *testing.T) (author.Element, func()) {
				t.Helper()
				it, err := author.NewIterate(author.Attrs{"varname": "frame"})
				require.NoError(t, err)
				return it, func() {
					require.NoError(t, it.Set("frm", 1))
					require.NoError(t, it.Set("to", 10))
					task, err := author.NewTask(author.Attrs{"title": "frame $frame"})
					require.NoError(t, err)
					require.NoError(t, it.AddToTemplate(task))
				}
			},
		},
		"instance title": {
			build: func(t *testing.T) (author.Element, func()) {
				t.Helper()
				inst, err := author.NewInstance(nil)
				require.NoError(t, err)
				return inst, func() { inst.Title.Set("other") }
			},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			e, fix := tc.build(t)
			_, err := author.Render(e)
			require.ErrorIs(t, err, author.ErrRequiredValue)
			fix()
			_, err = author.Render(e)
			require.NoError(t, err)
		})
	}
}

func TestRequiredValueInSubtree(t *testing.T) {
	t.Parallel()
	job, err := author.NewJob(author.Attrs{"title": "job"})
	require.NoError(t, err)
	task, err := job.NewTask(author.Attrs{"title": "task"})
	require.NoError(t, err)
	cmd, err := task.NewCommand(nil)
	require.NoError(t, err)

	_, err = author.Render(job)
	require.ErrorIs(t, err, author.ErrRequiredValue)
	require.ErrorContains(t, err, "a value is required for argv")

	require.NoError(t, cmd.Set("argv", "echo hi"))
	_, err = author.Render(job)
	require.NoError(t, err)
}

func TestAddChildTaskInstancing(t *testing.T) {
	t.Parallel()
	p1, err := author.NewTask(author.Attrs{"title": "p1"})
	require.NoError(t, err)
	p2, err := author.NewTask(author.Attrs{"title": "p2"})
	require.NoError(t, err)
	task, err := author.NewTask(author.Attrs{"title": "shared"})
	require.NoError(t, err)

	got, err := p1.AddChild(task)
	require.NoError(t, err)
	require.Same(t, task, got)
	parent, ok := task.ParentHandle()
	require.True(t, ok)
	require.Equal(t, p1.Handle(), parent)

	got, err = p2.AddChild(task)
	require.NoError(t, err)
	inst, ok := got.(*author.Instance)
	require.True(t, ok)
	title, ok := inst.Title.Get()
	require.True(t, ok)
	require.Equal(t, "shared", title)
	instParent, ok := inst.ParentHandle()
	require.True(t, ok)
	require.Equal(t, p2.Handle(), instParent)

	parent, ok = task.ParentHandle()
	require.True(t, ok)
	require.Equal(t, p1.Handle(), parent)
	require.Equal(t, []author.Element{task}, p1.Subtasks.Elements())
	require.Equal(t, []author.Element{inst}, p2.Subtasks.Elements())

	s, err := author.Render(p2)
	require.NoError(t, err)
	require.Equal(t, "Task {p2} -subtasks {\n  Instance {shared}\n}", s)
}

func TestAddChildParentExists(t *testing.T) {
	t.Parallel()
	job, err := author.NewJob(author.Attrs{"title": "job"})
	require.NoError(t, err)
	other, err := author.NewTask(author.Attrs{"title": "other"})
	require.NoError(t, err)

	it, err := author.NewIterate(author.Attrs{"varname": "i", "from": 1, "to": 2})
	require.NoError(t, err)
	_, err = job.AddChild(it)
	require.NoError(t, err)
	_, err = other.AddChild(it)
	require.ErrorIs(t, err, author.ErrParentExists)
	require.ErrorContains(t, err, "Iterate i is already a child of Job job")
	require.Equal(t, 0, other.Subtasks.Len())

	inst, err := author.NewInstance(author.Attrs{"title": "x"})
	require.NoError(t, err)
	_, err = job.AddChild(inst)
	require.NoError(t, err)
	_, err = other.AddChild(inst)
	require.ErrorIs(t, err, author.ErrParentExists)
}

func TestSetSubtasksAdopts(t *testing.T) {
	t.Parallel()
	j1, err := author.NewJob(author.Attrs{"title": "j1"})
	require.NoError(t, err)
	j2, err := author.NewJob(author.Attrs{"title": "j2"})
	require.NoError(t, err)
	it, err := author.NewIterate(author.Attrs{"varname": "i", "from": 1, "to": 2})
	require.NoError(t, err)

	require.NoError(t, j1.Set("subtasks", []author.Element{it}))
	parent, ok := it.ParentHandle()
	require.True(t, ok)
	require.Equal(t, j1.Handle(), parent)

	require.ErrorIs(t, j2.Set("subtasks", []author.Element{it}), author.ErrParentExists)
	require.Equal(t, 0, j2.Subtasks.Len())
	_, err = j1.AddChild(it)
	require.ErrorIs(t, err, author.ErrParentExists)
	require.Equal(t, []author.Element{it}, j1.Subtasks.Elements())

	p, err := author.NewTask(author.Attrs{"title": "p"})
	require.NoError(t, err)
	shared, err := p.NewTask(author.Attrs{"title": "shared"})
	require.NoError(t, err)
	require.NoError(t, j2.Set("subtasks", []author.Element{shared}))
	inst, ok := j2.Subtasks.Item(0).(*author.Instance)
	require.True(t, ok)
	title, _ := inst.Title.Get()
	require.Equal(t, "shared", title)
	parent, _ = shared.ParentHandle()
	require.Equal(t, p.Handle(), parent)

	// a refused element leaves the group and its children untouched
	fresh, err := author.NewTask(author.Attrs{"title": "fresh"})
	require.NoError(t, err)
	err = j2.Set("subtasks", []author.Element{fresh, it})
	require.ErrorIs(t, err, author.ErrParentExists)
	require.Equal(t, []author.Element{inst}, j2.Subtasks.Elements())
	_, ok = fresh.ParentHandle()
	require.False(t, ok)
	parent, _ = inst.ParentHandle()
	require.Equal(t, j2.Handle(), parent)

	// replacing the children releases the old ones
	require.NoError(t, j1.Set("subtasks", []author.Element{fresh}))
	_, ok = it.ParentHandle()
	require.False(t, ok)
	_, err = j2.AddChild(it)
	require.NoError(t, err)
}

func TestAddChildCycle(t *testing.T) {
	t.Parallel()
	root, err := author.NewTask(author.Attrs{"title": "root"})
	require.NoError(t, err)
	child, err := root.NewTask(author.Attrs{"title": "child"})
	require.NoError(t, err)

	_, err = child.AddChild(root)
	require.ErrorIs(t, err, author.ErrParentExists)
	_, err = root.AddChild(root)
	require.ErrorIs(t, err, author.ErrParentExists)
	require.ErrorIs(t, root.Set("subtasks", []author.Element{root}), author.ErrParentExists)
	require.Equal(t, []author.Element{child}, root.Subtasks.Elements())
	require.Equal(t, 0, child.Subtasks.Len())

	it, err := author.NewIterate(author.Attrs{"varname": "i", "from": 1, "to": 2})
	require.NoError(t, err)
	require.ErrorIs(t, it.AddToTemplate(it), author.ErrParentExists)
	require.ErrorIs(t, it.Template.SetValue([]author.Element{it}), author.ErrParentExists)

	got, err := author.Render(root)
	require.NoError(t, err)
	require.Equal(t, "Task {root} -subtasks {\n  Task {child}\n}", got)
}

func TestAddChildType(t *testing.T) {
	t.Parallel()
	task, err := author.NewTask(author.Attrs{"title": "t"})
	require.NoError(t, err)
	cmd, err := author.NewCommand(author.Attrs{"argv": "ls"})
	require.NoError(t, err)
	_, err = task.AddChild(cmd)
	require.ErrorIs(t, err, author.ErrType)
	_, err = task.AddChild(author.NewDirMap("a", "b", "NFS"))
	require.ErrorIs(t, err, author.ErrType)
	_, err = task.AddChild(nil)
	require.ErrorIs(t, err, author.ErrType)
}

func TestIterateRender(t *testing.T) {
	t.Parallel()
	it, err := author.NewIterate(author.Attrs{"varname": "frame", "frm": 1, "to": 24, "by": 2})
	require.NoError(t, err)
	task, err := author.NewTask(author.Attrs{"title": "render $frame", "argv": "render -f $frame"})
	require.NoError(t, err)
	require.NoError(t, it.AddToTemplate(task))
	_, ok := task.ParentHandle()
	require.False(t, ok)

	got, err := author.Render(it)
	require.NoError(t, err)
	want := `Iterate {frame} -from 1 -to 24 -by 2 -template {
  Task {render $frame} -cmds {
    RemoteCmd -argv {{render} {-f} {$frame}}
  }
}`
	require.Equal(t, want, got)
}

func TestSetGet(t *testing.T) {
	t.Parallel()
	job, err := author.NewJob(nil)
	require.NoError(t, err)

	v, err := job.Get("title")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, job.Set("title", "hello"))
	v, err = job.Get("title")
	require.NoError(t, err)
	require.Equal(t, "hello", v)
	require.Equal(t, "Job hello", job.String())

	require.NoError(t, job.Set("title", nil))
	require.Equal(t, "Job <no title>", job.String())

	err = job.Set("titlee", "typo")
	require.ErrorIs(t, err, author.ErrUnknownAttribute)
	_, err = job.Get("titlee")
	require.ErrorIs(t, err, author.ErrUnknownAttribute)

	err = job.Set("priority", "high")
	require.ErrorIs(t, err, author.ErrType)
	err = job.Set("paused", 2)
	require.ErrorIs(t, err, author.ErrType)

	_, err = author.NewJob(author.Attrs{"bogus": 1})
	require.ErrorIs(t, err, author.ErrUnknownAttribute)

	it, err := author.NewIterate(author.Attrs{"frm": 5})
	require.NoError(t, err)
	v, err = it.Get("from")
	require.NoError(t, err)
	require.Equal(t, 5, v)
	require.Equal(t, "Iterate <no iterator>", it.String())
}

func TestAttributeValues(t *testing.T) {
	t.Parallel()
	cmd, err := author.NewLocalCommand(author.Attrs{"argv": "ls -l"})
	require.NoError(t, err)
	require.True(t, cmd.IsLocal())
	require.Equal(t, "Command ls -l", cmd.String())

	require.NoError(t, cmd.Set("when", author.WhenAlways))
	require.ErrorIs(t, cmd.Set("when", "sometimes"), author.ErrType)
	require.NoError(t, cmd.Set("retryrc", []int{1, 2}))
	require.NoError(t, cmd.Set("samehost", 0))
	require.ErrorIs(t, cmd.Set("argv", 42), author.ErrType)

	got, err := author.Render(cmd)
	require.NoError(t, err)
	require.Equal(t, "Command -argv {{ls} {-l}} -samehost 0 -retryrc {1 2} -when {always}", got)

	job, err := author.NewJob(author.Attrs{"title": "dated"})
	require.NoError(t, err)
	job.After.Set(time.Date(2024, time.December, 14, 16, 24, 0, 0, time.UTC))
	job.AfterJids.Set([]int{7, 8})
	require.Equal(t, author.KindDate, job.After.Kind())
	s, err := job.After.Render(0)
	require.NoError(t, err)
	require.Equal(t, " -after {12 14 16:24}", s)
	s, err = job.AfterJids.Render(0)
	require.NoError(t, err)
	require.Equal(t, " -afterjids {7 8}", s)

	list := author.NewStringListAttribute("attr")
	require.NoError(t, list.SetValue([]string{"a", "b"}))
	s, err = list.Render(0)
	require.NoError(t, err)
	require.Equal(t, " -attr {{a} {b}}", s)

	n := author.NewIntAttribute("count")
	require.NoError(t, n.SetValue(uint8(7)))
	require.ErrorIs(t, n.SetValue(uint64(math.MaxUint64)), author.ErrType)
	require.ErrorIs(t, n.SetValue(uint(math.MaxUint)), author.ErrType)
	count, ok := n.Get()
	require.True(t, ok)
	require.Equal(t, 7, count)

	f := author.NewFloatAttribute("ratio", 3)
	require.NoError(t, f.SetValue(0.5))
	s, err = f.Render(0)
	require.NoError(t, err)
	require.Equal(t, " -ratio {0.500}", s)
}

func TestGroupAcceptance(t *testing.T) {
	t.Parallel()
	job, err := author.NewJob(author.Attrs{"title": "j"})
	require.NoError(t, err)
	task, err := author.NewTask(author.Attrs{"title": "t"})
	require.NoError(t, err)

	require.False(t, job.Cleanup.Accepts(task))
	require.True(t, job.Subtasks.Accepts(task))
	require.False(t, job.DirMaps.Accepts(task))
	require.ErrorIs(t, job.Cleanup.SetValue([]author.Element{task}), author.ErrType)

	post, err := job.NewPostscript(author.Attrs{"argv": "notify", "when": "error"})
	require.NoError(t, err)
	require.Equal(t, []author.Element{post}, job.Postscript.Elements())
}
