package render

import (
	"io"

	"github.com/valyala/quicktemplate"
)

// Dump writes one line per mounted component, indented by depth:
//
//	Provider renders=1 hooks=0
//	  Counter renders=3 hooks=5
func (rt *Root) Dump(w io.Writer) {
	qw := quicktemplate.AcquireWriter(w)
	defer quicktemplate.ReleaseWriter(qw)

	out := qw.N()
	for _, info := range rt.Instances() {
		for i := 1; i < info.Depth; i++ {
			out.S("  ")
		}
		out.S(info.Name)
		if info.Key != "" {
			out.S(" key=")
			out.Q(info.Key)
		}
		out.S(" renders=")
		out.D(info.Renders)
		out.S(" hooks=")
		out.D(info.Hooks)
		out.S("\n")
	}
}
