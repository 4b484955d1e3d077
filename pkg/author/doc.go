// Package author provides a typed object model for writing Tractor job
// scripts.
//
// A job is a tree of Elements. The root is a [Job]; its subtasks are
// [Task], [Instance] and [Iterate] elements; tasks hold [Command]s; jobs
// hold [DirMap]s. Every Element but DirMap has an ordered set of typed
// [Attribute]s that validate values on assignment, either through the
// exported attribute fields or by name with Set and Get.
//
// ## Parents
//
// Elements record the handle of their parent but do not own it. A Task
// added to a second parent is not moved: an Instance with the same title
// is inserted under the new parent instead. Iterates and Instances may
// have only one parent; adding them again fails with [ErrParentExists].
//
// ## Rendering
//
// [Render] serializes a tree into the engine's job script grammar. Required
// attributes are checked only at render time and an unset one fails the
// whole render with [ErrRequiredValue].
//
// # Example Usage
//
//	job, err := author.NewJob(author.Attrs{"title": "two layer job", "priority": 10})
//	if err != nil {
//		// handle error
//	}
//	_, err = job.NewTask(author.Attrs{"title": "comp", "argv": "comp fg.tif bg.tif final.tif"})
//	if err != nil {
//		// handle error
//	}
//	script, err := author.Render(job)
package author
