package jobfile_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/juliaogris/tractor/pkg/author"
	"github.com/juliaogris/tractor/pkg/jobfile"
	"github.com/stretchr/testify/require"
)

func TestParseTwoLayerJob(t *testing.T) {
	t.Parallel()
	data := `
title: two layer job
priority: 10
subtasks:
  - title: comp
    argv: [comp, fg.tif, bg.tif, final.tif]
`
	job, err := jobfile.Parse([]byte(data))
	require.NoError(t, err)
	got, err := author.Render(job)
	require.NoError(t, err)
	want := `Job -title {two layer job} -priority {10.0} -subtasks {
  Task {comp} -cmds {
    RemoteCmd -argv {{comp} {fg.tif} {bg.tif} {final.tif}}
  }
}`
	require.Equal(t, want, got)
}

func TestParseAttributes(t *testing.T) {
	t.Parallel()
	data := `
title: lighting
crews: [lighting, fx]
tags: gpu
paused: 1
after: 2024-12-14 16:24:00
afterjids: [12, 13]
maxactive: 4
dirmaps:
  - {src: "X:/", dst: /mnt/x, zone: NFS}
cleanup:
  - argv: rm -rf /tmp/lighting
postscript:
  - type: Command
    argv: [notify, done]
    when: always
subtasks:
  - type: Iterate
    varname: frame
    frm: 1
    to: 3
    template:
      - title: render
        argv: prman frame.rib
`
	job, err := jobfile.Parse([]byte(data))
	require.NoError(t, err)

	require.Equal(t, []string{"lighting", "fx"}, job.Crews.Get())
	require.Equal(t, []string{"gpu"}, job.Tags.Get())
	paused, ok := job.Paused.Get()
	require.True(t, ok)
	require.True(t, paused)
	after, ok := job.After.Get()
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 12, 14, 16, 24, 0, 0, time.Local), after)
	require.Equal(t, []int{12, 13}, job.AfterJids.Get())
	require.Equal(t, 1, job.DirMaps.Len())
	require.Equal(t, 1, job.Cleanup.Len())

	post := job.Postscript.Item(0).(*author.Command)
	require.True(t, post.IsLocal())
	when, _ := post.When.Get()
	require.Equal(t, author.WhenAlways, when)

	it := job.Subtasks.Item(0).(*author.Iterate)
	from, _ := it.From.Get()
	require.Equal(t, 1, from)
	require.Equal(t, 1, it.Template.Len())

	_, err = author.Render(job)
	require.NoError(t, err)
}

func TestParseAliasInstance(t *testing.T) {
	t.Parallel()
	data := `
title: comp
subtasks:
  - &render
    title: render
    argv: prman shot.rib
  - title: comp
    argv: comp fg.tif bg.tif
    subtasks:
      - *render
`
	job, err := jobfile.Parse([]byte(data))
	require.NoError(t, err)
	comp := job.Subtasks.Item(1).(*author.Task)
	inst, ok := comp.Subtasks.Item(0).(*author.Instance)
	require.True(t, ok)
	title, _ := inst.Title.Get()
	require.Equal(t, "render", title)
	parent, ok := inst.ParentHandle()
	require.True(t, ok)
	require.Equal(t, comp.Handle(), parent)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		data string
		is   error
	}{
		"empty":             {``, nil},
		"not a mapping":     {`- a`, nil},
		"unknown attribute": {"title: x\ncolour: red", author.ErrUnknownAttribute},
		"bad int":           {"title: x\nmaxactive: many", nil},
		"bad date":          {"title: x\nafter: tomorrow", nil},
		"unknown type":      {"title: x\nsubtasks:\n  - type: Shot\n    title: a", nil},
		"group not a list":  {"title: x\nsubtasks: a", nil},
		"wrong child":       {"title: x\nsubtasks:\n  - type: RemoteCmd\n    argv: ls", author.ErrType},
		"bad enum":          {"title: x\ncleanup:\n  - argv: ls\n    when: sometimes", nil},
		"iterate twice":     {"title: x\nsubtasks:\n  - &it {type: Iterate, varname: f, frm: 1, to: 2}\n  - *it", author.ErrParentExists},
		"recursive alias":   {"title: x\nsubtasks:\n  - &t\n    title: a\n    subtasks:\n      - title: b\n        subtasks: [*t]", author.ErrParentExists},
	}
	for name, tt := range tests {
		_, err := jobfile.Parse([]byte(tt.data))
		require.ErrorIs(t, err, jobfile.ErrDecode, name)
		if tt.is != nil {
			require.ErrorIs(t, err, tt.is, name)
		}
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: x\nsubtasks:\n  - title: a\n"), 0o600))
	job, err := jobfile.Load(path)
	require.NoError(t, err)
	require.Equal(t, "Job x", job.String())

	_, err = jobfile.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
