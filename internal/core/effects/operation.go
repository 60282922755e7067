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

package effects

import (
	"encoding/json"
	"fmt"
)

// OperationName is the name a standard effect uses to select its operation.
type OperationName string

const (
	OpBrightness    OperationName = "Brightness"
	OpContrast      OperationName = "Contrast"
	OpAlphaScale    OperationName = "AlphaScale"
	OpRgbFilter     OperationName = "RgbFilter"
	OpHslAdjustment OperationName = "HslAdjustment"
)

// Operation is one of the closed set of parameterised built-in transforms.
type Operation interface {
	OperationName() OperationName
	isOperation()
}

// Brightness adds Level to every colour channel. Zero is neutral.
type Brightness struct {
	Level float32 `json:"brightness"`
}

// Contrast scales channels around mid grey. One is neutral.
type Contrast struct {
	Level float32 `json:"contrast"`
}

// AlphaScale multiplies the alpha channel.
type AlphaScale struct {
	Scale float32 `json:"alphaScale"`
}

// RgbPreset names a well-known colour matrix.
type RgbPreset string

const (
	PresetNone      RgbPreset = ""
	PresetGrayscale RgbPreset = "grayscale"
	PresetInverted  RgbPreset = "inverted"
)

// RgbMatrix applies a 4x4 column-major colour matrix. Preset records which
// factory produced Matrix, if any.
type RgbMatrix struct {
	Preset RgbPreset   `json:"preset,omitempty"`
	Matrix [16]float32 `json:"rgbMatrix"`
}

// HslAdjustment shifts hue in degrees and adds to saturation and lightness.
type HslAdjustment struct {
	Hue        float32 `json:"hue"`
	Saturation float32 `json:"saturation"`
	Lightness  float32 `json:"lightness"`
}

func (Brightness) OperationName() OperationName    { return OpBrightness }
func (Contrast) OperationName() OperationName      { return OpContrast }
func (AlphaScale) OperationName() OperationName    { return OpAlphaScale }
func (RgbMatrix) OperationName() OperationName     { return OpRgbFilter }
func (HslAdjustment) OperationName() OperationName { return OpHslAdjustment }

func (Brightness) isOperation()    {}
func (Contrast) isOperation()      {}
func (AlphaScale) isOperation()    {}
func (RgbMatrix) isOperation()     {}
func (HslAdjustment) isOperation() {}

// Factory names accepted in the RgbFilter "factory" parameter.
const (
	FactoryGrayscale = "createGrayscaleFilter"
	FactoryInverted  = "createInvertedFilter"
)

var (
	// GrayscaleMatrix maps every channel to Rec. 709 luma.
	GrayscaleMatrix = [16]float32{
		0.2126, 0.2126, 0.2126, 0,
		0.7152, 0.7152, 0.7152, 0,
		0.0722, 0.0722, 0.0722, 0,
		0, 0, 0, 1,
	}

	// InvertedMatrix maps each colour channel c to 1 - c.
	InvertedMatrix = [16]float32{
		-1, 0, 0, 0,
		0, -1, 0, 0,
		0, 0, -1, 0,
		1, 1, 1, 1,
	}
)

// PresetMatrix returns the operation produced by a factory name.
func PresetMatrix(factory string) (RgbMatrix, bool) {
	switch factory {
	case FactoryGrayscale:
		return RgbMatrix{Preset: PresetGrayscale, Matrix: GrayscaleMatrix}, true
	case FactoryInverted:
		return RgbMatrix{Preset: PresetInverted, Matrix: InvertedMatrix}, true
	}
	return RgbMatrix{}, false
}

// MatrixFromValues builds an RgbMatrix from 16 values, or promotes 9 values by
// copying them to indices 0-8, zeroing 9-14 and setting 15 to one.
func MatrixFromValues(values []float32) (RgbMatrix, error) {
	var m RgbMatrix
	switch len(values) {
	case 16:
		copy(m.Matrix[:], values)
	case 9:
		copy(m.Matrix[:9], values)
		m.Matrix[15] = 1
	default:
		return m, fmt.Errorf("rgbMatrix needs 9 or 16 values, got %d", len(values))
	}
	return m, nil
}

// marshalOperation writes the name and parameters of op in wire form.
func marshalOperation(op Operation) (string, json.RawMessage, error) {
	if op == nil {
		return "", nil, nil
	}
	params, err := json.Marshal(op)
	if err != nil {
		return "", nil, err
	}
	return string(op.OperationName()), params, nil
}
