package sqlhost

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/oid"

	"github.com/wippyai/plbridge/errors"
	"github.com/wippyai/plbridge/host"
)

// declTypes maps SQLite declared column types to host types.
var declTypes = map[string]host.Oid{
	"INTEGER":     oid.T_int8,
	"INT":         oid.T_int8,
	"BIGINT":      oid.T_int8,
	"INT8":        oid.T_int8,
	"INT4":        oid.T_int4,
	"SMALLINT":    oid.T_int2,
	"INT2":        oid.T_int2,
	"REAL":        oid.T_float8,
	"DOUBLE":      oid.T_float8,
	"FLOAT":       oid.T_float8,
	"FLOAT8":      oid.T_float8,
	"FLOAT4":      oid.T_float4,
	"NUMERIC":     oid.T_numeric,
	"DECIMAL":     oid.T_numeric,
	"TEXT":        oid.T_text,
	"VARCHAR":     oid.T_varchar,
	"CHAR":        oid.T_bpchar,
	"CLOB":        oid.T_text,
	"BLOB":        oid.T_bytea,
	"BYTEA":       oid.T_bytea,
	"BOOLEAN":     oid.T_bool,
	"BOOL":        oid.T_bool,
	"DATE":        oid.T_date,
	"DATETIME":    oid.T_timestamp,
	"TIMESTAMP":   oid.T_timestamp,
	"TIMESTAMPTZ": oid.T_timestamptz,
	"UUID":        oid.T_uuid,
}

var typeMods = regexp.MustCompile(`\s*\(.*\)$`)

// declOid returns the host type of a declared column type, InvalidOid when
// the column has no usable declaration.
func declOid(decl string) host.Oid {
	decl = strings.ToUpper(strings.TrimSpace(typeMods.ReplaceAllString(decl, "")))
	return declTypes[decl]
}

// valueOid types an undeclared column from one of its values.
func valueOid(v any) host.Oid {
	switch v.(type) {
	case int64:
		return oid.T_int8
	case float64:
		return oid.T_float8
	case []byte:
		return oid.T_bytea
	case bool:
		return oid.T_bool
	case time.Time:
		return oid.T_timestamptz
	}
	return oid.T_text
}

// collect reads every row of rows into a result.
func (h *Host) collect(rows *sql.Rows, what string) (*host.Result, error) {
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, translate(err, what)
	}
	raw := make([][]any, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, translate(err, what)
		}
		raw = append(raw, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, what)
	}

	desc := &host.TupleDesc{TypeOid: oid.T_record, Attrs: make([]host.Attribute, len(cols))}
	for i, c := range cols {
		typ := declOid(c.DatabaseTypeName())
		if typ == host.InvalidOid {
			typ = oid.T_text
			for _, r := range raw {
				if r[i] != nil {
					typ = valueOid(r[i])
					break
				}
			}
		}
		desc.Attrs[i] = host.Attribute{Name: c.Name(), TypeOid: typ}
	}

	res := &host.Result{Desc: desc, Rows: make([]*host.Tuple, len(raw))}
	for n, r := range raw {
		tup := host.NewTuple(desc)
		for i, v := range r {
			d, err := h.fromDriver(desc.Attrs[i].TypeOid, v)
			if err != nil {
				return nil, err
			}
			tup.Set(i, d, v == nil)
		}
		res.Rows[n] = tup
	}
	res.RowsAffected = int64(len(raw))
	return res, nil
}

// fromDriver converts a SQLite value to the datum form of typ.
func (h *Host) fromDriver(typ host.Oid, v any) (host.Datum, error) {
	if v == nil {
		return nil, nil
	}
	switch x := v.(type) {
	case int64:
		switch typ {
		case oid.T_int8:
			return x, nil
		case oid.T_int4:
			return int32(x), nil
		case oid.T_int2:
			return int16(x), nil
		case oid.T_bool:
			return x != 0, nil
		case oid.T_float8:
			return float64(x), nil
		case oid.T_float4:
			return float32(x), nil
		}
		return h.io.Input(typ, strconv.FormatInt(x, 10))
	case float64:
		switch typ {
		case oid.T_float8:
			return x, nil
		case oid.T_float4:
			return float32(x), nil
		}
		return h.io.Input(typ, strconv.FormatFloat(x, 'g', -1, 64))
	case bool:
		if typ == oid.T_bool {
			return x, nil
		}
		return h.io.Input(typ, strconv.FormatBool(x))
	case []byte:
		if typ == oid.T_bytea {
			return append([]byte(nil), x...), nil
		}
		return h.io.Input(typ, string(x))
	case string:
		if typ == oid.T_text || typ == oid.T_varchar || typ == oid.T_bpchar {
			return x, nil
		}
		return h.io.Input(typ, x)
	case time.Time:
		switch typ {
		case oid.T_date:
			return pgtype.Date{Time: x, Valid: true}, nil
		case oid.T_timestamp:
			return pgtype.Timestamp{Time: x, Valid: true}, nil
		case oid.T_timestamptz:
			return pgtype.Timestamptz{Time: x, Valid: true}, nil
		}
		return h.io.Input(typ, x.Format(time.RFC3339Nano))
	}
	return nil, errors.New(errors.PhaseNative, errors.KindTypeMismatch).
		Value(v).
		Detail("unexpected SQLite value of type %T", v).
		Build()
}

// toDriver converts a datum to a value SQLite can bind.
func (h *Host) toDriver(d host.Datum) (driver.Value, error) {
	switch x := d.(type) {
	case nil, int64, float64, string, []byte, time.Time:
		return x, nil
	case bool:
		if x {
			return int64(1), nil
		}
		return int64(0), nil
	case byte:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case pgtype.Timestamp:
		if !x.Valid {
			return nil, nil
		}
		return x.Time, nil
	case pgtype.Timestamptz:
		if !x.Valid {
			return nil, nil
		}
		return x.Time, nil
	case pgtype.Date:
		if !x.Valid {
			return nil, nil
		}
		return x.Time.Format(time.DateOnly), nil
	case pgtype.Numeric:
		return h.io.Output(oid.T_numeric, x)
	case pgtype.UUID:
		return h.io.Output(oid.T_uuid, x)
	case *host.Tuple:
		return h.io.Output(oid.T_record, x)
	case *host.Array:
		return h.io.Output(x.ElemType, x)
	case fmt.Stringer:
		return x.String(), nil
	}
	return nil, errors.New(errors.PhaseNative, errors.KindUnsupported).
		Value(d).
		Detail("cannot bind a value of type %T", d).
		Build()
}

func (h *Host) driverArgs(args []host.Datum) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := h.toDriver(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
