package gateway

import (
	"encoding/json"
	"strconv"
)

// The points hierarchy is decoded leniently: a field of the wrong type (or a
// unit that is not an object at all) becomes a zero value instead of failing
// the whole list, so one corrupt unit does not hide the others.

type lenientObject map[string]json.RawMessage

func decodeLenient(data []byte) lenientObject {
	var obj lenientObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	return obj
}

func (o lenientObject) str(key string) string {
	raw, ok := o[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (o lenientObject) number(key string) int {
	raw, ok := o[key]
	if !ok {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		// numbers sent as strings
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0
		}
		n = json.Number(s)
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		return 0
	}
	return i
}

func (o lenientObject) items(key string) []json.RawMessage {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

func (p *Point) UnmarshalJSON(data []byte) error {
	obj := decodeLenient(data)
	*p = Point{
		Model:       obj.number("model"),
		Name:        obj.str("name"),
		Description: obj.str("description"),
	}
	return nil
}

func (m *Model) UnmarshalJSON(data []byte) error {
	obj := decodeLenient(data)
	*m = Model{
		Model:       obj.number("model"),
		Name:        obj.str("name"),
		Description: obj.str("description"),
	}
	for _, raw := range obj.items("points") {
		var p Point
		_ = p.UnmarshalJSON(raw)
		m.Points = append(m.Points, p)
	}
	return nil
}

func (u *Unit) UnmarshalJSON(data []byte) error {
	obj := decodeLenient(data)
	*u = Unit{Unit: obj.str("unit")}
	for _, raw := range obj.items("models") {
		var m Model
		_ = m.UnmarshalJSON(raw)
		u.Models = append(u.Models, m)
	}
	return nil
}
