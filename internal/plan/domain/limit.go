package domain

import (
	"encoding/json"
	"strconv"
)

// Limit is either a bounded non-negative quota or Unbounded. The zero value
// is Bounded(0).
type Limit struct {
	value     int64
	unbounded bool
}

func Bounded(n int64) Limit {
	if n < 0 {
		n = 0
	}
	return Limit{value: n}
}

func Unbounded() Limit {
	return Limit{unbounded: true}
}

func (l Limit) IsUnbounded() bool {
	return l.unbounded
}

// Value returns the bound, and false when the limit is Unbounded.
func (l Limit) Value() (int64, bool) {
	if l.unbounded {
		return 0, false
	}
	return l.value, true
}

func (l Limit) String() string {
	if l.unbounded {
		return "unbounded"
	}
	return strconv.FormatInt(l.value, 10)
}

// MarshalJSON renders an Unbounded limit as null.
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.unbounded {
		return []byte("null"), nil
	}
	return json.Marshal(l.value)
}

func (l *Limit) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = Unbounded()
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Bounded(n)
	return nil
}
