// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// =============================================================================
// Hyperparameter Value Union
// =============================================================================

// ParamValue is a scalar hyperparameter value: a number or a string.
//
// # Description
//
// Different model families carry disjoint hyperparameter sets, so values are
// schema-free, but at read sites the number/string distinction must stay
// explicit. Exactly one of Number or Str is set.
//
// On the wire a ParamValue is a plain JSON number or string:
//
//	{"learning_rate": 0.001, "optimizer": "adam"}
type ParamValue struct {
	Number *float64
	Str    *string
}

// NumberValue builds a numeric ParamValue.
func NumberValue(v float64) ParamValue {
	return ParamValue{Number: &v}
}

// StringValue builds a string ParamValue.
func StringValue(v string) ParamValue {
	return ParamValue{Str: &v}
}

// IsNumber reports whether the value is numeric.
func (v ParamValue) IsNumber() bool { return v.Number != nil }

// String renders the value for prompt output. Numbers use the shortest
// representation that round-trips.
func (v ParamValue) String() string {
	if v.Number != nil {
		return strconv.FormatFloat(*v.Number, 'g', -1, 64)
	}
	if v.Str != nil {
		return *v.Str
	}
	return ""
}

// MarshalJSON emits the underlying scalar.
func (v ParamValue) MarshalJSON() ([]byte, error) {
	if v.Number != nil {
		return json.Marshal(*v.Number)
	}
	if v.Str != nil {
		return json.Marshal(*v.Str)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts a JSON number or string. Any other JSON type is an
// error so malformed documents fail loudly instead of decoding to garbage.
func (v *ParamValue) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		v.Number = &num
		v.Str = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Str = &s
		v.Number = nil
		return nil
	}
	return fmt.Errorf("hyperparameter value must be a number or string, got %s", string(data))
}

// =============================================================================
// Ordered Hyperparameter Container
// =============================================================================

// Param is a single named hyperparameter.
type Param struct {
	Name  string
	Value ParamValue
}

// Hyperparameters is an ordered key-value container of hyperparameters.
//
// # Description
//
// Serializes as a JSON object but preserves insertion order, which is what
// the prompt renderer iterates over. Duplicate keys keep the last value but
// the first position, matching how a plain map merge would behave.
type Hyperparameters []Param

// Get returns the value for name and whether it is present.
func (h Hyperparameters) Get(name string) (ParamValue, bool) {
	for _, p := range h {
		if p.Name == name {
			return p.Value, true
		}
	}
	return ParamValue{}, false
}

// Set appends a parameter, replacing the value in place if the name exists.
func (h *Hyperparameters) Set(name string, value ParamValue) {
	for i, p := range *h {
		if p.Name == name {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Param{Name: name, Value: value})
}

// MarshalJSON writes an object with keys in insertion order.
func (h Hyperparameters) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, preserving key order via the token
// stream. null decodes to an empty container.
func (h *Hyperparameters) UnmarshalJSON(data []byte) error {
	*h = nil
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("hyperparameters must be a JSON object")
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected hyperparameter key token %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		var value ParamValue
		switch v := valTok.(type) {
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return fmt.Errorf("hyperparameter %q: %w", key, err)
			}
			value = NumberValue(f)
		case string:
			value = StringValue(v)
		default:
			return fmt.Errorf("hyperparameter %q must be a number or string", key)
		}
		h.Set(key, value)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
