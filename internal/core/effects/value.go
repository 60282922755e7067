// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package effects turns a model-generated effect description into an ordered
// pipeline of effect descriptors. Standard operations resolve to one of a
// closed set of parameterised transforms; custom entries resolve to a fragment
// shader program plus a list of observable, typed uniforms.
//
// This file defines the uniform value model: a closed set of value kinds and a
// comparable tagged union holding one value of any of those kinds.
package effects

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// Kind identifies the data type of a uniform as it is declared in shader source.
type Kind string

const (
	KindFloat Kind = "float"
	KindInt   Kind = "int"
	KindVec2  Kind = "vec2"
	KindVec3  Kind = "vec3"
	KindVec4  Kind = "vec4"
)

// ParseKind maps a declared type name to a Kind. Matching ignores case and
// surrounding whitespace.
func ParseKind(in string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(in)))
	switch k {
	case KindFloat, KindInt, KindVec2, KindVec3, KindVec4:
		return k, true
	}
	return "", false
}

// IsNumeric reports whether the kind is a scalar carrying a value range.
func (k Kind) IsNumeric() bool {
	return k == KindFloat || k == KindInt
}

// Arity is the number of components a value of this kind holds.
func (k Kind) Arity() int {
	switch k {
	case KindFloat, KindInt:
		return 1
	case KindVec2:
		return 2
	case KindVec3:
		return 3
	case KindVec4:
		return 4
	}
	return 0
}

var errNotNumeric = errors.New("value is not a finite number")

// Value is a tagged union over the uniform kinds. Values are immutable and
// comparable with ==, which is the equality used for change detection.
type Value struct {
	kind Kind
	i    int64
	v    [4]float64
}

// FloatValue wraps a float uniform value.
func FloatValue(f float64) Value {
	return Value{kind: KindFloat, v: [4]float64{f}}
}

// IntValue wraps an int uniform value.
func IntValue(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// Vec2Value, Vec3Value and Vec4Value build vector values of fixed arity.
func Vec2Value(x, y float64) Value {
	return Value{kind: KindVec2, v: [4]float64{x, y}}
}

func Vec3Value(x, y, z float64) Value {
	return Value{kind: KindVec3, v: [4]float64{x, y, z}}
}

func Vec4Value(x, y, z, w float64) Value {
	return Value{kind: KindVec4, v: [4]float64{x, y, z, w}}
}

// VecValue builds a vector value from a component slice whose length must match
// the kind's arity.
func VecValue(kind Kind, components []float64) (Value, error) {
	if kind != KindVec2 && kind != KindVec3 && kind != KindVec4 {
		return Value{}, fmt.Errorf("%s is not a vector kind", kind)
	}
	if len(components) != kind.Arity() {
		return Value{}, fmt.Errorf("%s needs %d components, got %d", kind, kind.Arity(), len(components))
	}
	out := Value{kind: kind}
	copy(out.v[:], components)
	return out, nil
}

// Kind returns the value's kind, or "" for the zero Value.
func (v Value) Kind() Kind { return v.kind }

// IsZero reports whether v was never assigned a kind.
func (v Value) IsZero() bool { return v.kind == "" }

// Float returns the scalar as a float64. Int values are converted.
func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.v[0]
}

// Int returns the scalar as an int64. Float values are truncated.
func (v Value) Int() int64 {
	if v.kind == KindInt {
		return v.i
	}
	return int64(v.v[0])
}

// Vector returns the components of the value, one entry per arity.
func (v Value) Vector() []float64 {
	if v.kind == KindInt {
		return []float64{float64(v.i)}
	}
	out := make([]float64, v.kind.Arity())
	copy(out, v.v[:])
	return out
}

// String formats the value for logs, e.g. "vec2[0.5 0.5]".
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.v[0])
	case "":
		return "<unset>"
	}
	return fmt.Sprintf("%s%v", v.kind, v.Vector())
}

// MarshalJSON encodes scalars as bare numbers and vectors as number arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.v[0])
	case "":
		return []byte("null"), nil
	}
	return json.Marshal(v.Vector())
}

// ParseValue coerces a decoded JSON value into a Value of the given kind.
// Numbers and numeric strings are accepted for scalars; a one-element array is
// unwrapped. Vectors take an array of exactly the kind's arity, or a single
// number that is broadcast to every component.
func ParseValue(kind Kind, raw any) (Value, error) {
	switch kind {
	case KindFloat:
		f, err := toFloat(unwrapSingle(raw))
		if err != nil {
			return Value{}, err
		}
		return FloatValue(f), nil
	case KindInt:
		i, err := toInt(unwrapSingle(raw))
		if err != nil {
			return Value{}, err
		}
		return IntValue(i), nil
	case KindVec2, KindVec3, KindVec4:
		items, ok := raw.([]any)
		if !ok {
			f, err := toFloat(raw)
			if err != nil {
				return Value{}, fmt.Errorf("%s default must be an array: %w", kind, err)
			}
			components := make([]float64, kind.Arity())
			for i := range components {
				components[i] = f
			}
			return VecValue(kind, components)
		}
		components := make([]float64, 0, len(items))
		for i, item := range items {
			f, err := toFloat(item)
			if err != nil {
				return Value{}, fmt.Errorf("%s component %d: %w", kind, i, err)
			}
			components = append(components, f)
		}
		return VecValue(kind, components)
	}
	return Value{}, fmt.Errorf("unknown kind %q", kind)
}

func unwrapSingle(raw any) any {
	if items, ok := raw.([]any); ok && len(items) == 1 {
		return items[0]
	}
	return raw
}

// toFloat converts model output into a finite float64. Booleans and nulls are
// rejected even though cast would accept them.
func toFloat(raw any) (float64, error) {
	switch raw.(type) {
	case nil, bool:
		return 0, errNotNumeric
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errNotNumeric, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotNumeric
	}
	return f, nil
}

// toFloat32 is toFloat for operation parameters, which are single precision.
// Values that would overflow to infinity are rejected.
func toFloat32(raw any) (float32, error) {
	f, err := toFloat(raw)
	if err != nil {
		return 0, err
	}
	if math.Abs(f) > math.MaxFloat32 {
		return 0, fmt.Errorf("%w: %g overflows float32", errNotNumeric, f)
	}
	return float32(f), nil
}

// toInt truncates fractional input toward zero and rejects values outside
// the int64 range.
func toInt(raw any) (int64, error) {
	switch raw.(type) {
	case nil, bool:
		return 0, errNotNumeric
	case float64, float32:
		f, err := toFloat(raw)
		if err != nil {
			return 0, err
		}
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %g overflows int64", errNotNumeric, f)
		}
		return int64(f), nil
	}
	i, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errNotNumeric, err)
	}
	return i, nil
}

// Range is the inclusive bounds of a numeric uniform, used by parameter
// editors. Values outside it are still accepted by the uniform itself.
type Range struct {
	Min Value
	Max Value
}

// Contains reports whether a scalar lies within the range. Values of a
// different kind are never contained.
func (r Range) Contains(v Value) bool {
	if v.Kind() != r.Min.Kind() {
		return false
	}
	if v.Kind() == KindInt {
		return v.Int() >= r.Min.Int() && v.Int() <= r.Max.Int()
	}
	return v.Float() >= r.Min.Float() && v.Float() <= r.Max.Float()
}

// MarshalJSON writes the range as a two-element array, the shape the model
// uses for valueRange.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]Value{r.Min, r.Max})
}
