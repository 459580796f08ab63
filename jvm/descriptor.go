package jvm

import (
	"strings"

	"github.com/wippyai/plbridge/errors"
)

var primitiveDescriptors = map[string]string{
	"boolean": "Z",
	"byte":    "B",
	"char":    "C",
	"short":   "S",
	"int":     "I",
	"long":    "J",
	"float":   "F",
	"double":  "D",
	"void":    "V",
}

var descriptorPrimitives = map[byte]string{
	'Z': "boolean",
	'B': "byte",
	'C': "char",
	'S': "short",
	'I': "int",
	'J': "long",
	'F': "float",
	'D': "double",
	'V': "void",
}

// Descriptor converts a Java source-level type name into its JNI descriptor.
// "int" -> "I", "java.lang.String" -> "Ljava/lang/String;", "int[]" -> "[I".
func Descriptor(javaName string) string {
	javaName = strings.TrimSpace(javaName)
	dims := 0
	for strings.HasSuffix(javaName, "[]") {
		dims++
		javaName = strings.TrimSpace(javaName[:len(javaName)-2])
	}

	var b strings.Builder
	for i := 0; i < dims; i++ {
		b.WriteByte('[')
	}
	if d, ok := primitiveDescriptors[javaName]; ok {
		b.WriteString(d)
	} else {
		b.WriteByte('L')
		b.WriteString(strings.ReplaceAll(javaName, ".", "/"))
		b.WriteByte(';')
	}
	return b.String()
}

// JavaName converts a single field descriptor back to the source-level name.
func JavaName(desc string) string {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	base := desc[dims:]

	var name string
	if len(base) == 1 {
		name = descriptorPrimitives[base[0]]
	} else if strings.HasPrefix(base, "L") && strings.HasSuffix(base, ";") {
		name = strings.ReplaceAll(base[1:len(base)-1], "/", ".")
	}
	if name == "" {
		return desc
	}
	return name + strings.Repeat("[]", dims)
}

// MethodDescriptor builds a method descriptor from Java type names.
func MethodDescriptor(params []string, ret string) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range params {
		b.WriteString(Descriptor(p))
	}
	b.WriteByte(')')
	b.WriteString(Descriptor(ret))
	return b.String()
}

// ParseMethodDescriptor splits a method descriptor into its parameter and
// return field descriptors.
func ParseMethodDescriptor(desc string) (params []string, ret string, err error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", errors.InvalidInput(errors.PhaseResolve, "method descriptor must start with '(': "+desc)
	}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n, perr := fieldLen(desc[i:])
		if perr != nil {
			return nil, "", perr
		}
		params = append(params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", errors.InvalidInput(errors.PhaseResolve, "unterminated method descriptor: "+desc)
	}
	ret = desc[i+1:]
	if n, rerr := fieldLen(ret); rerr != nil || n != len(ret) {
		return nil, "", errors.InvalidInput(errors.PhaseResolve, "bad return descriptor in "+desc)
	}
	return params, ret, nil
}

func fieldLen(s string) (int, error) {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, errors.InvalidInput(errors.PhaseResolve, "truncated descriptor")
	}
	if s[i] == 'L' {
		end := strings.IndexByte(s[i:], ';')
		if end < 0 {
			return 0, errors.InvalidInput(errors.PhaseResolve, "unterminated class descriptor")
		}
		return i + end + 1, nil
	}
	if _, ok := descriptorPrimitives[s[i]]; !ok {
		return 0, errors.InvalidInput(errors.PhaseResolve, "unknown descriptor character "+string(s[i]))
	}
	return i + 1, nil
}

// IsPrimitiveDescriptor reports whether desc names a primitive (non-array) type.
func IsPrimitiveDescriptor(desc string) bool {
	if len(desc) != 1 {
		return false
	}
	_, ok := descriptorPrimitives[desc[0]]
	return ok && desc != "V"
}
