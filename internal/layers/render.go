package layers

import (
	"fmt"
	"strings"
)

// Render returns a multi-line description of a layer tree. Composite
// layers print as "Name[" with their children indented two spaces per
// level; leaves print their parameterized display name:
//
//	Parallel[
//	  Serial[
//	    Embedding(41699, 128)
//	    LSTM(128)
//	    Mean
//	    Normalize
//	  ]
//	  ...
//	]
//
// A weight-shared branch appears once per slot it occupies.
func Render(l Layer) string {
	var b strings.Builder
	render(&b, l, 0)
	return strings.TrimSuffix(b.String(), "\n")
}

type composite interface {
	sublayers() []Layer
}

func render(b *strings.Builder, l Layer, depth int) {
	indent := strings.Repeat("  ", depth)
	c, ok := l.(composite)
	if !ok {
		fmt.Fprintf(b, "%s%s\n", indent, l.String())
		return
	}
	fmt.Fprintf(b, "%s%s[\n", indent, l.Name())
	for _, sub := range c.sublayers() {
		render(b, sub, depth+1)
	}
	fmt.Fprintf(b, "%s]\n", indent)
}
