package gojvm

import (
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/jvm"
)

var (
	envType    = reflect.TypeOf((*jvm.Env)(nil))
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
	objectType = reflect.TypeOf((*jvm.Object)(nil)).Elem()
	anyType    = reflect.TypeOf((*any)(nil)).Elem()
	timeType   = reflect.TypeOf(time.Time{})
	uuidType   = reflect.TypeOf(uuid.UUID{})
)

var primitiveNames = map[reflect.Kind]string{
	reflect.Bool:    "boolean",
	reflect.Int8:    "byte",
	reflect.Uint8:   "byte",
	reflect.Int16:   "short",
	reflect.Int32:   "int",
	reflect.Int64:   "long",
	reflect.Float32: "float",
	reflect.Float64: "double",
	reflect.Uint16:  "char",
}

var boxedNames = map[reflect.Kind]string{
	reflect.Bool:    "java.lang.Boolean",
	reflect.Int8:    "java.lang.Byte",
	reflect.Int16:   "java.lang.Short",
	reflect.Int32:   "java.lang.Integer",
	reflect.Int64:   "java.lang.Long",
	reflect.Float32: "java.lang.Float",
	reflect.Float64: "java.lang.Double",
	reflect.Uint16:  "java.lang.Character",
}

// interfaceNames maps the bridge interfaces to the classes they stand for.
var interfaceNames = map[reflect.Type]string{
	reflect.TypeOf((*jvm.Iterator)(nil)).Elem():          jvm.ClassIterator,
	reflect.TypeOf((*jvm.ResultSetProvider)(nil)).Elem(): jvm.ClassResultSetProvider,
	reflect.TypeOf((*jvm.TriggerData)(nil)).Elem():       jvm.ClassTriggerData,
	reflect.TypeOf((*jvm.RowReader)(nil)).Elem():         jvm.ClassResultSet,
	reflect.TypeOf((*jvm.RowWriter)(nil)).Elem():         jvm.ClassResultSet,
	reflect.TypeOf((*jvm.ResultSet)(nil)).Elem():         jvm.ClassResultSet,
	reflect.TypeOf((*jvm.Savepoint)(nil)).Elem():         jvm.ClassSavepoint,
	anyType: jvm.ClassObject,
}

// javaName returns the Java source-level type name for a Go type.
func javaName(t reflect.Type) (string, error) {
	switch t {
	case timeType:
		return jvm.ClassTimestamp, nil
	case uuidType:
		return jvm.ClassUUID, nil
	}
	if name, ok := interfaceNames[t]; ok {
		return name, nil
	}
	if t.Kind() != reflect.Interface && t.Implements(objectType) {
		zt := t
		if t.Kind() == reflect.Ptr && t.Elem().Implements(objectType) {
			zt = t.Elem()
		}
		return reflect.Zero(zt).Interface().(jvm.Object).JavaClass(), nil
	}

	switch t.Kind() {
	case reflect.String:
		return jvm.ClassString, nil
	case reflect.Ptr:
		if t.Elem().Kind() == reflect.String {
			return jvm.ClassString, nil
		}
		if name, ok := boxedNames[t.Elem().Kind()]; ok && t.Elem().PkgPath() == "" {
			return name, nil
		}
	case reflect.Slice:
		elem, err := javaName(t.Elem())
		if err != nil {
			return "", err
		}
		return elem + "[]", nil
	default:
		if name, ok := primitiveNames[t.Kind()]; ok && t.PkgPath() == "" {
			return name, nil
		}
	}
	return "", errors.New(errors.PhaseLoad, errors.KindUnsupported).
		Detail("Go type %s has no managed counterpart", t).
		Build()
}

type reflectFunc struct {
	fn       reflect.Value
	params   []reflect.Type
	wantsEnv bool
	hasValue bool
	hasError bool
}

func reflectMethod(class, name string, fn any) (*Method, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseLoad, errors.KindTypeMismatch).
			JavaType(class+"."+name).
			Detail("handler must be a function, got %T", fn).
			Build()
	}
	rt := rv.Type()
	if rt.IsVariadic() {
		return nil, errors.Unsupported(errors.PhaseLoad, "variadic method "+class+"."+name)
	}

	rf := &reflectFunc{fn: rv}
	first := 0
	if rt.NumIn() > 0 && rt.In(0) == envType {
		rf.wantsEnv = true
		first = 1
	}

	params := make([]string, 0, rt.NumIn()-first)
	for i := first; i < rt.NumIn(); i++ {
		jn, err := javaName(rt.In(i))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindUnsupported, err, class+"."+name)
		}
		params = append(params, jn)
		rf.params = append(rf.params, rt.In(i))
	}

	ret := "void"
	switch rt.NumOut() {
	case 0:
	case 1:
		if rt.Out(0) == errorType {
			rf.hasError = true
		} else {
			rf.hasValue = true
		}
	case 2:
		if rt.Out(1) != errorType {
			return nil, errors.InvalidInput(errors.PhaseLoad, "second result of "+class+"."+name+" must be error")
		}
		rf.hasValue = true
		rf.hasError = true
	default:
		return nil, errors.InvalidInput(errors.PhaseLoad, "too many results for "+class+"."+name)
	}
	if rf.hasValue {
		jn, err := javaName(rt.Out(0))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseLoad, errors.KindUnsupported, err, class+"."+name)
		}
		ret = jn
	}

	return &Method{
		fn:    rf,
		class: class,
		name:  name,
		desc:  jvm.MethodDescriptor(params, ret),
	}, nil
}

func (rf *reflectFunc) call(env *jvm.Env, args []jvm.Value) (jvm.Value, error) {
	if len(args) != len(rf.params) {
		return nil, jvm.IllegalArgument("wrong number of arguments")
	}

	in := make([]reflect.Value, 0, len(args)+1)
	if rf.wantsEnv {
		in = append(in, reflect.ValueOf(env))
	}
	for i, a := range args {
		v, err := toGo(a, rf.params[i])
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}

	out := rf.fn.Call(in)

	if rf.hasError {
		if errv := out[len(out)-1]; !errv.IsNil() {
			return nil, errv.Interface().(error)
		}
	}
	if !rf.hasValue {
		return nil, nil
	}
	return fromGo(out[0]), nil
}

// toGo converts a managed value into an argument of type t.
func toGo(v jvm.Value, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	switch {
	case t.Kind() == reflect.Ptr && rv.Kind() != reflect.Ptr && rv.Type().ConvertibleTo(t.Elem()) && isNumeric(rv.Kind()) == isNumeric(t.Elem().Kind()):
		p := reflect.New(t.Elem())
		p.Elem().Set(rv.Convert(t.Elem()))
		return p, nil
	case rv.Kind() == reflect.Ptr && !rv.IsNil() && rv.Elem().Type().AssignableTo(t):
		return rv.Elem(), nil
	case t.Kind() == reflect.Slice && rv.Kind() == reflect.Slice:
		out := reflect.MakeSlice(t, rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			e, err := toGo(rv.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(e)
		}
		return out, nil
	case isNumeric(rv.Kind()) && isNumeric(t.Kind()):
		return rv.Convert(t), nil
	}
	return reflect.Value{}, jvm.IllegalArgument("cannot pass " + rv.Type().String() + " as " + t.String())
}

// fromGo converts a result into a managed value. Pointers to primitives
// become boxed values and slices of them become Object arrays.
func fromGo(rv reflect.Value) jvm.Value {
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		if _, boxed := boxedNames[rv.Elem().Kind()]; (boxed || rv.Elem().Kind() == reflect.String) && rv.Type().Elem().PkgPath() == "" {
			return rv.Elem().Interface()
		}
	case reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return rv.Elem().Interface()
	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Ptr {
			out := make([]jvm.Value, rv.Len())
			for i := range out {
				out[i] = fromGo(rv.Index(i))
			}
			return out
		}
	}
	return rv.Interface()
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
