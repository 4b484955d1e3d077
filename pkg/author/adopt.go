package author

import "fmt"

// adoption is the outcome of classifying a candidate subtask.
type adoption int

const (
	// adoptAttach appends the element and parents it.
	adoptAttach adoption = iota
	// adoptInstance appends a new Instance standing in for a Task that
	// already has a parent.
	adoptInstance
	// adoptReject refuses the element.
	adoptReject
)

// classify decides how e is added to a subtasks group of parent. For
// adoptReject the returned error says why.
func classify(parent, e Element) (adoption, error) {
	if e == nil || !isSubtask(e) {
		return adoptReject, fmt.Errorf("%w: %v is not an instance of Task, Instance, or Iterate", ErrType, e)
	}
	n := e.base()
	if !n.hasParent() {
		if contains(e, parent.Handle()) {
			return adoptReject, fmt.Errorf("%w: %v cannot be added below itself", ErrParentExists, e)
		}
		return adoptAttach, nil
	}
	if _, ok := e.(*Task); ok {
		return adoptInstance, nil
	}
	return adoptReject, fmt.Errorf("%w: %v is already a child of %s", ErrParentExists, e, n.parentName)
}

// adopt adds e to the subtasks group of parent and returns the element
// inserted, which is a new Instance if e is a Task with another parent.
func adopt(parent Element, subtasks *GroupAttribute, e Element) (Element, error) {
	decision, err := classify(parent, e)
	switch decision {
	case adoptReject:
		return nil, err
	case adoptInstance:
		inst, err := NewInstance(Attrs{"title": e.(*Task).Title.Value()})
		if err != nil {
			return nil, err
		}
		e = inst
	}
	if err := subtasks.add(e); err != nil {
		return nil, err
	}
	e.base().setParent(parent)
	return e, nil
}

func newChildTask(parent Element, subtasks *GroupAttribute, attrs Attrs) (*Task, error) {
	t, err := NewTask(attrs)
	if err != nil {
		return nil, err
	}
	if _, err := adopt(parent, subtasks, t); err != nil {
		return nil, err
	}
	return t, nil
}

func newChildCommand(group *GroupAttribute, attrs Attrs) (*Command, error) {
	c, err := NewCommand(attrs)
	if err != nil {
		return nil, err
	}
	if err := group.add(c); err != nil {
		return nil, err
	}
	return c, nil
}
