package types

import (
	"context"
	"strings"
	"sync"

	"github.com/lib/pq/oid"
	"go.uber.org/zap"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
	"github.com/wippyai/plbridge/jvm"
)

// Options tune the built-in mappings.
type Options struct {
	// PrimitiveNulls lets SQL NULL reach primitive parameters as zero.
	PrimitiveNulls bool
}

type typeKey struct {
	oid  host.Oid
	java string
}

// arrayElems maps the built-in array types to their element types.
var arrayElems = map[host.Oid]host.Oid{
	oid.T__bool:        oid.T_bool,
	oid.T__char:        oid.T_char,
	oid.T__int2:        oid.T_int2,
	oid.T__int4:        oid.T_int4,
	oid.T__int8:        oid.T_int8,
	oid.T__float4:      oid.T_float4,
	oid.T__float8:      oid.T_float8,
	oid.T__text:        oid.T_text,
	oid.T__varchar:     oid.T_varchar,
	oid.T__bpchar:      oid.T_bpchar,
	oid.T__name:        oid.T_name,
	oid.T__bytea:       oid.T_bytea,
	oid.T__numeric:     oid.T_numeric,
	oid.T__timestamp:   oid.T_timestamp,
	oid.T__timestamptz: oid.T_timestamptz,
	oid.T__date:        oid.T_date,
	oid.T__uuid:        oid.T_uuid,
}

// Registry holds the canonical Type per (host type, managed class) pair.
// The default mapping of a host type is also reachable by oid alone.
type Registry struct {
	catalog host.Catalog
	io      host.TypeIO
	byOid   map[host.Oid]Type
	byKey   map[typeKey]Type
	byJava  map[string]Type
	opts    Options
	mu      sync.RWMutex
}

// NewRegistry creates a registry with the built-in mappings.
func NewRegistry(catalog host.Catalog, io host.TypeIO, opts Options) *Registry {
	r := &Registry{
		catalog: catalog,
		io:      io,
		opts:    opts,
		byOid:   make(map[host.Oid]Type),
		byKey:   make(map[typeKey]Type),
		byJava:  make(map[string]Type),
	}
	for i := range primitives {
		p := newPrimitive(&primitives[i], opts.PrimitiveNulls)
		r.add(p, true)
		r.add(p.boxed, false)
	}
	for o := range textOids {
		r.add(newStringType(o, io), true)
	}
	r.add(&BytesType{newBase(oid.T_bytea, "byte[]")}, true)
	r.add(&NumericType{newBase(oid.T_numeric, jvm.ClassBigDecimal)}, true)
	r.add(&TimestampType{newBase(oid.T_timestamp, jvm.ClassTimestamp)}, true)
	r.add(&TimestampType{newBase(oid.T_timestamptz, jvm.ClassTimestamp)}, true)
	r.add(&DateType{newBase(oid.T_date, jvm.ClassDate)}, true)
	r.add(&UUIDType{newBase(oid.T_uuid, jvm.ClassUUID)}, true)
	r.add(&VoidType{newBase(oid.T_void, "void")}, true)
	r.add(newTriggerType(), true)
	return r
}

func (r *Registry) add(t Type, isDefault bool) {
	if isDefault {
		r.byOid[t.Oid()] = t
	}
	r.byKey[typeKey{t.Oid(), t.JavaName()}] = t
	if _, ok := r.byJava[t.JavaName()]; !ok {
		r.byJava[t.JavaName()] = t
	}
}

// Options returns the options the registry was built with.
func (r *Registry) Options() Options { return r.opts }

// Register makes t the canonical mapping for its (oid, class) pair. It
// becomes the default for its oid when none exists yet.
func (r *Registry) Register(t Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, hasDefault := r.byOid[t.Oid()]
	r.add(t, !hasDefault)
}

// RegisterUDT maps a host type to a managed class through its text form.
func (r *Registry) RegisterUDT(typ host.Oid, class string) (Type, error) {
	if typ == host.InvalidOid {
		return nil, errors.InvalidTypeID(uint32(typ))
	}
	t := newUDTType(typ, class, r.io)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[typeKey{typ, class}]; ok {
		return nil, errors.DuplicateRegistration("type mapping " + oidName(typ) + " -> " + class)
	}
	r.byOid[typ] = t
	r.add(t, true)
	Logger().Debug("registered user-defined type", zap.Uint32("oid", uint32(typ)), zap.String("class", class))
	return t, nil
}

// Resolve returns the default Type of a host type.
func (r *Registry) Resolve(ctx context.Context, typ host.Oid) (Type, error) {
	if typ == host.InvalidOid {
		return nil, errors.InvalidTypeID(uint32(typ))
	}
	if typ == oid.T_record {
		return &CompositeType{base: newBase(oid.T_record, jvm.ClassResultSet)}, nil
	}

	r.mu.RLock()
	t, ok := r.byOid[typ]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	if elem, ok := arrayElems[typ]; ok {
		et, err := r.Resolve(ctx, elem)
		if err != nil {
			return nil, err
		}
		return r.store(newArrayType(typ, et)), nil
	}

	if r.catalog != nil {
		desc, err := r.catalog.LookupComposite(ctx, typ)
		if err != nil {
			return nil, errors.CacheLookupFailed("type", uint32(typ), err)
		}
		if desc != nil {
			comp, err := r.composite(ctx, typ, desc)
			if err != nil {
				return nil, err
			}
			return r.store(comp), nil
		}
	}

	Logger().Debug("no mapping for host type, using its text form", zap.Uint32("oid", uint32(typ)))
	return r.store(newStringType(typ, r.io)), nil
}

// store caches t as the default for its oid unless a concurrent resolve won.
func (r *Registry) store(t Type) Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byOid[t.Oid()]; ok {
		return prev
	}
	r.add(t, true)
	return t
}

// ResolveJava returns the Type mapping typ to the named class. An empty name
// selects the default mapping.
func (r *Registry) ResolveJava(ctx context.Context, typ host.Oid, javaName string) (Type, error) {
	def, err := r.Resolve(ctx, typ)
	if err != nil || javaName == "" {
		return def, err
	}
	if def.JavaName() == javaName {
		return def, nil
	}
	if ot := def.ObjectType(); ot != nil && ot.JavaName() == javaName {
		return ot, nil
	}

	key := typeKey{typ, javaName}
	r.mu.RLock()
	t, ok := r.byKey[key]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	var alt Type
	switch {
	case javaName == jvm.ClassString:
		alt = newStringType(typ, r.io)
	case strings.HasSuffix(javaName, "[]"):
		if at, isArray := def.(*ArrayType); isArray {
			if bt, isBoxed := at.elem.(*BoxedType); isBoxed && bt.primitive.JavaName()+"[]" == javaName {
				alt = newPrimitiveArrayType(typ, bt.primitive)
			}
		}
	}
	if alt == nil {
		// Another host type's mapping; the caller decides with CanReplace.
		r.mu.RLock()
		t, ok = r.byJava[javaName]
		r.mu.RUnlock()
		if ok {
			return t, nil
		}
		return nil, errors.SignatureMismatch(javaName, oidName(typ), "no mapping between these types")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byKey[key]; ok {
		return t, nil
	}
	r.byKey[key] = alt
	return alt, nil
}

// ResolveRecord returns an uncached composite type for desc.
func (r *Registry) ResolveRecord(ctx context.Context, desc *host.TupleDesc) (*CompositeType, error) {
	if desc == nil {
		return nil, errors.InvalidInput(errors.PhaseResolve, "record without tuple descriptor")
	}
	typ := desc.TypeOid
	if typ == host.InvalidOid {
		typ = oid.T_record
	}
	return r.composite(ctx, typ, desc)
}

func (r *Registry) composite(ctx context.Context, typ host.Oid, desc *host.TupleDesc) (*CompositeType, error) {
	comp := &CompositeType{
		base:    newBase(typ, jvm.ClassResultSet),
		desc:    desc,
		columns: make([]Type, len(desc.Attrs)),
	}
	for i, a := range desc.Attrs {
		if a.Dropped {
			continue
		}
		ct, err := r.Resolve(ctx, a.TypeOid)
		if err != nil {
			return nil, errors.New(errors.PhaseResolve, errors.KindInvalidTypeID).
				Path(a.Name).Cause(err).Build()
		}
		if ot := ct.ObjectType(); ot != nil {
			ct = ot
		}
		comp.columns[i] = ct
	}
	return comp, nil
}

// ObjectType returns the reference form of t, nil when t has none.
func (r *Registry) ObjectType(t Type) Type {
	return t.ObjectType()
}

// Len returns the number of cached mappings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
