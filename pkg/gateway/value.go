package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

type ValueKind int

const (
	ValueNone ValueKind = iota
	ValueFloat
	ValueInt
	ValueString
	ValueBool
)

// PointValue is the current value of a gateway point. The gateway serializes it
// untagged (12, 1.5, "ON", true) but older builds used {"Int": 12} style objects,
// both are accepted.
type PointValue struct {
	Kind  ValueKind
	Float float64
	Int   int64
	Str   string
	Bool  bool
}

func FloatValue(v float64) PointValue {
	return PointValue{Kind: ValueFloat, Float: v}
}

func IntValue(v int64) PointValue {
	return PointValue{Kind: ValueInt, Int: v}
}

func StringValue(v string) PointValue {
	return PointValue{Kind: ValueString, Str: v}
}

func BoolValue(v bool) PointValue {
	return PointValue{Kind: ValueBool, Bool: v}
}

func (v PointValue) IsNone() bool {
	return v.Kind == ValueNone
}

// Code returns the integer code held by the value, if any.
func (v PointValue) Code() (int64, bool) {
	switch v.Kind {
	case ValueInt:
		return v.Int, true
	case ValueFloat:
		if v.Float == float64(int64(v.Float)) {
			return int64(v.Float), true
		}
	case ValueString:
		if n, err := strconv.ParseInt(v.Str, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

func (v PointValue) String() string {
	switch v.Kind {
	case ValueFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueString:
		return v.Str
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	}
	return ""
}

func (v PointValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueFloat:
		return json.Marshal(v.Float)
	case ValueInt:
		return json.Marshal(v.Int)
	case ValueString:
		return json.Marshal(v.Str)
	case ValueBool:
		return json.Marshal(v.Bool)
	}
	return []byte("null"), nil
}

func (v *PointValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = PointValue{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case '{':
		var tagged struct {
			Float   *float64 `json:"Float"`
			Int     *int64   `json:"Int"`
			String  *string  `json:"String"`
			Boolean *bool    `json:"Boolean"`
		}
		if err := json.Unmarshal(data, &tagged); err != nil {
			return err
		}
		switch {
		case tagged.Float != nil:
			*v = FloatValue(*tagged.Float)
		case tagged.Int != nil:
			*v = IntValue(*tagged.Int)
		case tagged.String != nil:
			*v = StringValue(*tagged.String)
		case tagged.Boolean != nil:
			*v = BoolValue(*tagged.Boolean)
		}
	default:
		num := string(data)
		if i, err := strconv.ParseInt(num, 10, 64); err == nil {
			*v = IntValue(i)
			return nil
		}
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return errors.New("gateway: invalid point value " + num)
		}
		*v = FloatValue(f)
	}
	return nil
}
