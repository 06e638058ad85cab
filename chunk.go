// chunk.go
//
// Chunk tree: the intermediate between special-form emission and final
// target text. Leaves are single lines; a subchunk renders with one extra
// level of indentation. Building a tree instead of concatenating strings
// keeps nested blocks cheap and the assembler trivially deterministic.
package fennel

import (
	"fmt"
	"strings"
)

// Chunk is a rose tree of emitted target-source lines.
type Chunk struct {
	nodes []chunkNode
}

type chunkNode struct {
	line string
	sub  *Chunk // non-nil for subtree nodes; line is unused then
}

// Line appends one verbatim line.
func (c *Chunk) Line(s string) {
	c.nodes = append(c.nodes, chunkNode{line: s})
}

// Linef appends one formatted line.
func (c *Chunk) Linef(format string, args ...any) {
	c.Line(fmt.Sprintf(format, args...))
}

// Sub appends and returns a nested chunk rendered one indent deeper.
func (c *Chunk) Sub() *Chunk {
	sub := &Chunk{}
	c.nodes = append(c.nodes, chunkNode{sub: sub})
	return sub
}

// AddSub appends an already-built chunk as a nested block.
func (c *Chunk) AddSub(sub *Chunk) {
	c.nodes = append(c.nodes, chunkNode{sub: sub})
}

// Splice appends another chunk's nodes at the same depth.
func (c *Chunk) Splice(other *Chunk) {
	c.nodes = append(c.nodes, other.nodes...)
}

// Assemble renders the tree. Output is a pure function of the tree and
// the indent string.
func (c *Chunk) Assemble(tab string) string {
	var b strings.Builder
	c.render(&b, tab, 0, new(bool))
	return b.String()
}

func (c *Chunk) render(b *strings.Builder, tab string, depth int, wrote *bool) {
	for _, n := range c.nodes {
		if n.sub != nil {
			n.sub.render(b, tab, depth+1, wrote)
			continue
		}
		if *wrote {
			b.WriteByte('\n')
		}
		for i := 0; i < depth; i++ {
			b.WriteString(tab)
		}
		b.WriteString(n.line)
		*wrote = true
	}
}
