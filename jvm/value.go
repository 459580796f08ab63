package jvm

import (
	"math/big"
	"strings"
	"time"
)

// Value is a managed value. nil is the Java null.
type Value = any

// Class names the bridge maps to Go interfaces.
const (
	ClassObject            = "java.lang.Object"
	ClassString            = "java.lang.String"
	ClassBigDecimal        = "java.math.BigDecimal"
	ClassTimestamp         = "java.sql.Timestamp"
	ClassDate              = "java.sql.Date"
	ClassUUID              = "java.util.UUID"
	ClassIterator          = "java.util.Iterator"
	ClassResultSet         = "java.sql.ResultSet"
	ClassTriggerData       = "org.postgresql.pljava.TriggerData"
	ClassResultSetProvider = "org.postgresql.pljava.ResultSetProvider"
	ClassSavepoint         = "java.sql.Savepoint"
)

// Object is implemented by Go values that stand for managed reference types.
// JavaClass must not dereference its receiver.
type Object interface {
	JavaClass() string
}

// BigDecimal is the managed form of java.math.BigDecimal: Unscaled * 10^-Scale.
type BigDecimal struct {
	Unscaled *big.Int
	Scale    int32
}

func (*BigDecimal) JavaClass() string { return ClassBigDecimal }

// String renders the decimal in plain notation.
func (d *BigDecimal) String() string {
	if d == nil || d.Unscaled == nil {
		return "0"
	}
	s := new(big.Int).Abs(d.Unscaled).String()
	neg := d.Unscaled.Sign() < 0
	if d.Scale > 0 {
		for len(s) <= int(d.Scale) {
			s = "0" + s
		}
		s = s[:len(s)-int(d.Scale)] + "." + s[len(s)-int(d.Scale):]
	} else if d.Scale < 0 {
		s += strings.Repeat("0", int(-d.Scale))
	}
	if neg {
		s = "-" + s
	}
	return s
}

// Date is the managed form of java.sql.Date.
type Date struct {
	time.Time
}

func (Date) JavaClass() string { return ClassDate }

// Iterator is the managed producer for scalar set-returning functions.
type Iterator interface {
	HasNext(env *Env) (bool, error)
	Next(env *Env) (Value, error)
}

// Closer is optionally implemented by producers that hold resources.
type Closer interface {
	Close(env *Env) error
}

// RowReader exposes one row to managed code.
type RowReader interface {
	Object
	ColumnCount() int
	ColumnName(i int) string
	Get(env *Env, i int) (Value, error)
	GetByName(env *Env, name string) (Value, error)
}

// RowWriter is a row managed code fills in.
type RowWriter interface {
	RowReader
	Set(env *Env, i int, v Value) error
	SetByName(env *Env, name string, v Value) error
}

// ResultSetProvider is the managed producer for composite set-returning functions.
type ResultSetProvider interface {
	AssignRowValues(env *Env, receiver RowWriter, rowNum int64) (bool, error)
	Close(env *Env) error
}

// ResultSet is a result returned by Natives.Execute.
type ResultSet interface {
	Object
	Next(env *Env) (bool, error)
	Row() RowReader
	RowsAffected() int64
	Close(env *Env) error
}

// TriggerData is the single argument of a trigger method.
type TriggerData interface {
	Object
	Name() (string, error)
	TableName() (string, error)
	SchemaName() (string, error)
	IsBefore() (bool, error)
	IsAfter() (bool, error)
	IsForEachRow() (bool, error)
	IsFiredByInsert() (bool, error)
	IsFiredByUpdate() (bool, error)
	IsFiredByDelete() (bool, error)
	Arguments() ([]string, error)
	Old(env *Env) (RowReader, error)
	New(env *Env) (RowWriter, error)
	Suppress(env *Env) error
}

// Savepoint is the managed proxy for a host subtransaction.
type Savepoint interface {
	Object
	ID() (int, error)
	SavepointName() string
}
