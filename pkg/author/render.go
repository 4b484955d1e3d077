package author

import "strings"

const spacesPerIndent = 2

// Render returns the job script of e and its descendants: the type tag
// followed by every set attribute in declaration order, with group
// members on their own lines indented two spaces per level.
//
// Render fails with ErrRequiredValue if any required attribute in the tree
// is unset. Rendering the same tree twice yields identical output.
func Render(e Element) (string, error) {
	return e.render(0)
}

func indent(depth int) string {
	return strings.Repeat(" ", depth*spacesPerIndent)
}
