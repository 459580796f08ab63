package function

import (
	"strings"

	"github.com/wippyai/plbridge/errors"
)

// Body is a parsed language body.
type Body struct {
	Class  string
	Method string
	// Params holds the declared parameter class names when Explicit.
	Params   []string
	Explicit bool
}

// ParseBody parses "<class>.<method>" with an optional parenthesized list of
// parameter class names. It scans from the end: the parameter list first,
// then the last dot separating class and method.
func ParseBody(body string) (*Body, error) {
	src := strings.TrimSpace(body)
	b := &Body{}

	end := len(src)
	if strings.HasSuffix(src, ")") {
		open := strings.LastIndexByte(src, '(')
		if open < 0 {
			return nil, errors.Syntax(body, "unbalanced parenthesis in parameter list")
		}
		b.Explicit = true
		list := strings.TrimSpace(src[open+1 : len(src)-1])
		if list != "" {
			for _, p := range strings.Split(list, ",") {
				p = strings.TrimSpace(p)
				if p == "" {
					return nil, errors.Syntax(body, "empty parameter type")
				}
				b.Params = append(b.Params, p)
			}
		}
		end = open
	}

	head := strings.TrimSpace(src[:end])
	if strings.ContainsAny(head, "()") {
		return nil, errors.Syntax(body, "unexpected parenthesis")
	}
	dot := strings.LastIndexByte(head, '.')
	if dot <= 0 {
		return nil, errors.Syntax(body, "expected <class name>.<method name>")
	}
	b.Class = strings.TrimSpace(head[:dot])
	b.Method = strings.TrimSpace(head[dot+1:])
	if b.Method == "" {
		return nil, errors.Syntax(body, "missing method name")
	}
	return b, nil
}

// String renders the body in canonical form.
func (b *Body) String() string {
	s := b.Class + "." + b.Method
	if b.Explicit {
		s += "(" + strings.Join(b.Params, ",") + ")"
	}
	return s
}
