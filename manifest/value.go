package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/aa-wasm/errors"
)

// ValueKind identifies which alternative a GUI grid Value holds.
type ValueKind uint8

const (
	ValueInt ValueKind = iota
	ValueFloat
	ValueString
	ValuePair
	ValueBytes
)

// Value is one cell of the GUI parameter grid. The JSON form is untagged;
// alternatives are tried in order: int32, float32, string, pair of bytes,
// byte list.
type Value struct {
	Str   string
	Bytes []byte
	Pair  [2]uint8
	Float float32
	Int   int32
	Kind  ValueKind
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errors.InvalidInput(errors.PhaseParse, "empty grid value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value{Kind: ValueString, Str: s}
		return nil

	case '[':
		var raw []json.Number
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		bs := make([]byte, len(raw))
		for i, n := range raw {
			u, err := strconv.ParseUint(n.String(), 10, 8)
			if err != nil {
				return errors.New(errors.PhaseParse, errors.KindInvalidData).
					Path(strconv.Itoa(i)).
					Detail("grid list element %s is not a byte", n).
					Build()
			}
			bs[i] = byte(u)
		}
		if len(bs) == 2 {
			*v = Value{Kind: ValuePair, Pair: [2]uint8{bs[0], bs[1]}}
			return nil
		}
		*v = Value{Kind: ValueBytes, Bytes: bs}
		return nil

	default:
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return err
		}
		if i, err := strconv.ParseInt(n.String(), 10, 32); err == nil {
			*v = Value{Kind: ValueInt, Int: int32(i)}
			return nil
		}
		f, err := strconv.ParseFloat(n.String(), 32)
		if err != nil {
			return errors.New(errors.PhaseParse, errors.KindInvalidData).
				Detail("grid value %s is not a number", n).
				Cause(err).
				Build()
		}
		*v = Value{Kind: ValueFloat, Float: float32(f)}
		return nil
	}
}

// AsInt converts the value to an integer: floats truncate, everything else
// that is not an integer yields 0.
func (v Value) AsInt() int32 {
	switch v.Kind {
	case ValueInt:
		return v.Int
	case ValueFloat:
		if math.IsNaN(float64(v.Float)) {
			return 0
		}
		return int32(v.Float)
	default:
		return 0
	}
}

// String renders the value the way GUI descriptions expect it.
func (v Value) String() string {
	switch v.Kind {
	case ValueInt:
		return strconv.FormatInt(int64(v.Int), 10)
	case ValueFloat:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	case ValueString:
		return v.Str
	case ValuePair:
		return fmt.Sprintf("[%d,%d]", v.Pair[0], v.Pair[1])
	case ValueBytes:
		var b strings.Builder
		b.WriteByte('[')
		for i, u := range v.Bytes {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(int(u)))
		}
		b.WriteByte(']')
		return b.String()
	default:
		return ""
	}
}
