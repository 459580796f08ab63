package host

import (
	"github.com/lib/pq/oid"
)

// Volatility is the provolatile class of a function.
type Volatility byte

const (
	VolatilityImmutable Volatility = 'i'
	VolatilityStable    Volatility = 's'
	VolatilityVolatile  Volatility = 'v'
)

// ReadOnly reports whether functions of this class must not modify data.
func (v Volatility) ReadOnly() bool {
	return v == VolatilityImmutable || v == VolatilityStable
}

// ProcInfo is the catalog entry of a function.
type ProcInfo struct {
	Name       string
	Namespace  string
	Body       string
	ArgNames   []string
	ArgTypes   []Oid
	Oid        Oid
	ReturnType Oid
	Volatility Volatility
	ReturnsSet bool
	Strict     bool
}

// IsTrigger reports whether the function is declared to return trigger.
func (p *ProcInfo) IsTrigger() bool {
	return p.ReturnType == oid.T_trigger
}
