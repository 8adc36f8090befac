package metric

import (
	"fmt"
	"math"
)

type (
	// Kind selects how a metric's 64-bit slots are interpreted.
	Kind uint8

	// Value is one raw 64-bit metric slot, as stored on disk.
	Value uint64
)

const (
	KindInt Kind = iota
	KindReal
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func IntValue(v uint64) Value {
	return Value(v)
}

func RealValue(f float64) Value {
	return Value(math.Float64bits(f))
}

func (v Value) Int() uint64 {
	return uint64(v)
}

func (v Value) Real() float64 {
	return math.Float64frombits(uint64(v))
}

func (v Value) IsZero() bool {
	return v == 0
}

// Format renders v according to k.
func (v Value) Format(k Kind) string {
	if k == KindReal {
		return fmt.Sprintf("%g", v.Real())
	}
	return fmt.Sprintf("%d", v.Int())
}
