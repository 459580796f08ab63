package jvm

import (
	"reflect"
	"testing"
)

func TestDescriptor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"int", "I"},
		{"boolean", "Z"},
		{"void", "V"},
		{"java.lang.String", "Ljava/lang/String;"},
		{"int[]", "[I"},
		{"java.lang.Integer[][]", "[[Ljava/lang/Integer;"},
		{" long ", "J"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Descriptor(tt.in); got != tt.want {
				t.Errorf("Descriptor(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if back := JavaName(tt.want); back != trimmed(tt.in) {
				t.Errorf("JavaName(%q) = %q, want %q", tt.want, back, trimmed(tt.in))
			}
		})
	}
}

func trimmed(s string) string {
	for len(s) > 0 && s[0] == ' ' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == ' ' {
		s = s[:len(s)-1]
	}
	return s
}

func TestMethodDescriptor(t *testing.T) {
	got := MethodDescriptor([]string{"int", "java.lang.String"}, "java.lang.Integer")
	want := "(ILjava/lang/String;)Ljava/lang/Integer;"
	if got != want {
		t.Fatalf("MethodDescriptor = %q, want %q", got, want)
	}
}

func TestParseMethodDescriptor(t *testing.T) {
	params, ret, err := ParseMethodDescriptor("(I[JLjava/lang/String;)V")
	if err != nil {
		t.Fatalf("ParseMethodDescriptor: %v", err)
	}
	if !reflect.DeepEqual(params, []string{"I", "[J", "Ljava/lang/String;"}) {
		t.Errorf("params = %v", params)
	}
	if ret != "V" {
		t.Errorf("ret = %q", ret)
	}

	for _, bad := range []string{"I)V", "(I", "(Q)V", "(Ljava/lang/String)V", "()II"} {
		if _, _, err := ParseMethodDescriptor(bad); err == nil {
			t.Errorf("ParseMethodDescriptor(%q) should fail", bad)
		}
	}
}

func TestIsPrimitiveDescriptor(t *testing.T) {
	for _, d := range []string{"I", "Z", "J", "D"} {
		if !IsPrimitiveDescriptor(d) {
			t.Errorf("%q should be primitive", d)
		}
	}
	for _, d := range []string{"V", "[I", "Ljava/lang/Integer;", ""} {
		if IsPrimitiveDescriptor(d) {
			t.Errorf("%q should not be primitive", d)
		}
	}
}
