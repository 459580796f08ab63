package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq/oid"

	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/host/pgtypeio"
)

// nullLiteral is the argument text standing for SQL NULL.
const nullLiteral = "NULL"

func parseOid(s string) (host.Oid, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return host.InvalidOid, err
	}
	return host.Oid(n), nil
}

// typeOid resolves a type name such as "int4" or "text", or a numeric oid.
func typeOid(codec *pgtypeio.Codec, name string) (host.Oid, error) {
	name = strings.TrimSpace(name)
	if n, err := parseOid(name); err == nil {
		return n, nil
	}
	if t, ok := codec.Map().TypeForName(name); ok {
		return host.Oid(t.OID), nil
	}
	for typ, n := range oid.TypeName {
		if strings.EqualFold(n, name) {
			return typ, nil
		}
	}
	return host.InvalidOid, fmt.Errorf("unknown type %q", name)
}

// typeName names typ for display.
func typeName(codec *pgtypeio.Codec, typ host.Oid) string {
	if t, ok := codec.Map().TypeForOID(uint32(typ)); ok {
		return t.Name
	}
	if n, ok := oid.TypeName[typ]; ok {
		return strings.ToLower(n)
	}
	return strconv.FormatUint(uint64(typ), 10)
}

// parseArgs converts argument text to datums of the function's argument
// types.
func parseArgs(codec *pgtypeio.Codec, p *host.ProcInfo, texts []string) ([]host.Datum, error) {
	if len(texts) != len(p.ArgTypes) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", p.Name, len(p.ArgTypes), len(texts))
	}
	args := make([]host.Datum, len(texts))
	for i, text := range texts {
		if text == nullLiteral {
			continue
		}
		d, err := codec.Input(p.ArgTypes[i], text)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		args[i] = d
	}
	return args, nil
}

// formatDatum renders a result in its text form.
func formatDatum(codec *pgtypeio.Codec, typ host.Oid, d host.Datum) string {
	if d == nil {
		return nullLiteral
	}
	s, err := codec.Output(typ, d)
	if err != nil {
		return fmt.Sprint(d)
	}
	return s
}

// signature renders name(argtypes) -> return.
func signature(codec *pgtypeio.Codec, p *host.ProcInfo) string {
	args := make([]string, len(p.ArgTypes))
	for i, t := range p.ArgTypes {
		args[i] = typeName(codec, t)
		if i < len(p.ArgNames) && p.ArgNames[i] != "" {
			args[i] = p.ArgNames[i] + " " + args[i]
		}
	}
	ret := typeName(codec, p.ReturnType)
	if p.ReturnsSet {
		ret = "setof " + ret
	}
	return fmt.Sprintf("%s(%s) -> %s", p.Name, strings.Join(args, ", "), ret)
}
