package document

import "strings"

// Tree is the structural form a parser produces before it is flattened into a Document.
type Tree struct {
	Title    string  // From metadata, markup or filename
	Pages    int     // Page count for paginated sources, 0 otherwise
	Children []*Node // Top-level sections
}

// Node is a recursive section in the tree.
type Node struct {
	Title    string  // Section heading (empty for leaf text)
	Text     string  // Text content of this node (may be empty for container nodes)
	Page     int     // Source page (0 if N/A)
	Children []*Node // Subsections
}

// Text flattens the tree in document order. Section headings are kept as their own
// paragraph so they survive as sentence boundaries downstream.
func (t *Tree) Text() string {
	var sb strings.Builder
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			for _, part := range []string{n.Title, n.Text} {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				if sb.Len() > 0 {
					sb.WriteString("\n\n")
				}
				sb.WriteString(part)
			}
			walk(n.Children)
		}
	}
	walk(t.Children)
	return sb.String()
}

// FirstLine returns the first non-empty line of the flattened text.
func (t *Tree) FirstLine() string {
	for _, line := range strings.Split(t.Text(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
