// Package jobfile reads job descriptions written in YAML into author
// job trees.
//
// A job file is a mapping of Job attribute names to values. Group
// attributes such as subtasks, cmds or dirmaps hold sequences of child
// mappings, whose element type follows from the group or is given by a
// "type" key: Task, Instance, Iterate, RemoteCmd, Command or DirMap.
// Tasks may carry an "argv" entry as a shorthand for a single command.
//
// A YAML alias of a task that is already part of the tree adds an
// Instance of it:
//
//	title: comp
//	subtasks:
//	  - &render
//	    title: render
//	    argv: prman shot.rib
//	  - title: comp
//	    argv: comp fg.tif bg.tif
//	    subtasks:
//	      - *render
package jobfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/juliaogris/tractor/pkg/author"
	"gopkg.in/yaml.v3"
)

// ErrDecode is returned for job files that do not describe a valid job.
var ErrDecode = errors.New("job file error")

// dateLayouts are tried in order for date attributes.
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// Load reads the job file at path.
func Load(path string) (*author.Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	job, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return job, nil
}

// Parse decodes a job description held in data.
func Parse(data []byte) (*author.Job, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a single job description from r.
func Decode(r io.Reader) (*author.Job, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrDecode)
		}
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, nodeError(root, "job must be a mapping")
	}
	job, err := author.NewJob(nil)
	if err != nil {
		return nil, err
	}
	d := &decoder{built: map[*yaml.Node]author.Element{}}
	if err := d.fill(job, root); err != nil {
		return nil, err
	}
	return job, nil
}

// decoder remembers the element built for every mapping node so that
// YAML aliases resolve to the same element.
type decoder struct {
	built map[*yaml.Node]author.Element
}

func (d *decoder) fill(e author.AttributeSet, m *yaml.Node) error {
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, value := m.Content[i], m.Content[i+1]
		if key.Value == "type" {
			continue
		}
		if t, ok := e.(*author.Task); ok && key.Value == "argv" {
			argv, err := coerce(author.KindArgv, value)
			if err != nil {
				return err
			}
			if _, err := t.NewCommand(author.Attrs{"argv": argv}); err != nil {
				return wrap(value, err)
			}
			continue
		}
		attr, err := e.Attribute(key.Value)
		if err != nil {
			return wrap(key, err)
		}
		if group, ok := attr.(*author.GroupAttribute); ok {
			if err := d.fillGroup(e, group, value); err != nil {
				return err
			}
			continue
		}
		v, err := coerce(attr.Kind(), value)
		if err != nil {
			return err
		}
		if err := attr.SetValue(v); err != nil {
			return wrap(value, err)
		}
	}
	return nil
}

type childAdder interface {
	AddChild(author.Element) (author.Element, error)
}

func (d *decoder) fillGroup(parent author.AttributeSet, group *author.GroupAttribute, seq *yaml.Node) error {
	if seq.Kind != yaml.SequenceNode {
		return nodeError(seq, group.Name()+" must be a sequence")
	}
	for _, n := range seq.Content {
		child, err := d.element(n, defaultType(group.Name()))
		if err != nil {
			return err
		}
		switch group.Name() {
		case "subtasks":
			adder, ok := parent.(childAdder)
			if !ok {
				return nodeError(n, fmt.Sprintf("%v cannot have subtasks", parent))
			}
			_, err = adder.AddChild(child)
		case "template":
			err = parent.(*author.Iterate).AddToTemplate(child)
		default:
			err = group.SetValue(append(group.Elements(), child))
		}
		if err != nil {
			return wrap(n, err)
		}
	}
	return nil
}

// element returns the element described by n, building it on first use.
func (d *decoder) element(n *yaml.Node, typ string) (author.Element, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if e, ok := d.built[n]; ok {
		return e, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, nodeError(n, "element must be a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == "type" {
			typ = n.Content[i+1].Value
		}
	}
	var e author.AttributeSet
	var err error
	switch typ {
	case "Task":
		e, err = author.NewTask(nil)
	case "Instance":
		e, err = author.NewInstance(nil)
	case "Iterate":
		e, err = author.NewIterate(nil)
	case "RemoteCmd":
		e, err = author.NewCommand(nil)
	case "Command":
		e, err = author.NewLocalCommand(nil)
	case "DirMap":
		return d.dirMap(n)
	default:
		return nil, nodeError(n, fmt.Sprintf("unknown element type %q", typ))
	}
	if err != nil {
		return nil, wrap(n, err)
	}
	d.built[n] = e
	if err := d.fill(e, n); err != nil {
		return nil, err
	}
	return e, nil
}

func (d *decoder) dirMap(n *yaml.Node) (author.Element, error) {
	var v struct {
		Type string `yaml:"type"`
		Src  string `yaml:"src"`
		Dst  string `yaml:"dst"`
		Zone string `yaml:"zone"`
	}
	if err := n.Decode(&v); err != nil {
		return nil, wrap(n, err)
	}
	dm := author.NewDirMap(v.Src, v.Dst, v.Zone)
	d.built[n] = dm
	return dm, nil
}

func defaultType(group string) string {
	switch group {
	case "subtasks", "template":
		return "Task"
	case "dirmaps":
		return "DirMap"
	default:
		return "RemoteCmd"
	}
}

// coerce converts n to the Go value an attribute of kind accepts.
func coerce(kind author.Kind, n *yaml.Node) (any, error) {
	switch kind {
	case author.KindInt:
		return decodeAs[int](n)
	case author.KindFloat:
		return decodeAs[float64](n)
	case author.KindBool:
		if v, err := decodeAs[bool](n); err == nil {
			return v, nil
		}
		return decodeAs[int](n)
	case author.KindDate:
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, n.Value, time.Local); err == nil {
				return t, nil
			}
		}
		return nil, nodeError(n, fmt.Sprintf("invalid date %q", n.Value))
	case author.KindString, author.KindEnum:
		if n.Kind != yaml.ScalarNode {
			return nil, nodeError(n, "expected a scalar")
		}
		return n.Value, nil
	case author.KindStringList:
		if n.Kind == yaml.ScalarNode {
			return []string{n.Value}, nil
		}
		return decodeAs[[]string](n)
	case author.KindArgv:
		if n.Kind == yaml.ScalarNode {
			return n.Value, nil
		}
		return decodeAs[[]string](n)
	case author.KindIntList:
		if n.Kind == yaml.ScalarNode {
			v, err := decodeAs[int](n)
			if err != nil {
				return nil, err
			}
			return []int{v.(int)}, nil
		}
		return decodeAs[[]int](n)
	default:
		return nil, nodeError(n, "attribute cannot be set")
	}
}

func decodeAs[T any](n *yaml.Node) (any, error) {
	var v T
	if err := n.Decode(&v); err != nil {
		return nil, wrap(n, err)
	}
	return v, nil
}

func nodeError(n *yaml.Node, msg string) error {
	return fmt.Errorf("%w: line %d: %s", ErrDecode, n.Line, msg)
}

func wrap(n *yaml.Node, err error) error {
	return fmt.Errorf("%w: line %d: %w", ErrDecode, n.Line, err)
}
