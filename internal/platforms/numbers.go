package platforms

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// number decodes vendor numerics sent as JSON numbers, strings, or
// per-period arrays (which are summed).
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var parts []*number
		if err := json.Unmarshal(b, &parts); err != nil {
			return err
		}
		var sum number
		for _, p := range parts {
			if p != nil {
				sum += *p
			}
		}
		*n = sum
		return nil
	}
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*n = number(f)
	return nil
}

func (n number) Int() int64 {
	return int64(n)
}

func (n number) Float() float64 {
	return float64(n)
}

// micros converts a vendor micro-unit amount to currency units.
func micros(n number) float64 {
	return float64(n) / 1e6
}

// toMicros converts currency units to vendor micro-units.
func toMicros(amount float64) int64 {
	return int64(amount*1e6 + 0.5)
}

// toCents converts currency units to cents.
func toCents(amount float64) int64 {
	return int64(amount*100 + 0.5)
}

// flexID decodes ids sent either as JSON numbers or strings.
type flexID string

func (id *flexID) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	if s == "null" {
		s = ""
	}
	*id = flexID(s)
	return nil
}

func (id flexID) String() string {
	return string(id)
}
