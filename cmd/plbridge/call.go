package main

import (
	"context"
	"os"

	"golang.org/x/term"
)

// call resolves ref and calls it with text arguments. Each returned line
// is one result value in text form.
func (s *session) call(ctx context.Context, ref string, texts []string) ([]string, error) {
	p, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	args, err := parseArgs(s.codec, p, texts)
	if err != nil {
		return nil, err
	}

	if p.ReturnsSet {
		set, err := s.rt.CallSet(ctx, p.Oid, args...)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(set))
		for i, d := range set {
			out[i] = formatDatum(s.codec, p.ReturnType, d)
		}
		return out, nil
	}

	d, isNull, err := s.rt.CallFunction(ctx, p.Oid, args...)
	if err != nil {
		return nil, err
	}
	if isNull {
		d = nil
	}
	return []string{formatDatum(s.codec, p.ReturnType, d)}, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
