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

import "google.golang.org/genai"

func number(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: desc}
}

func text(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

// ResponseSchema is the structured output constraint given to the model when
// it is asked for an effect description. It mirrors what Translate accepts.
func ResponseSchema() *genai.Schema {
	parameters := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"brightness": number("A value from -1.0 (black) to 1.0 (white), with 0.0 being no change."),
			"contrast":   number("Contrast multiplier. 1.0 leaves frames unchanged, 0.0 makes every pixel grey."),
			"rgbMatrix": {
				Type:        genai.TypeArray,
				Items:       number(""),
				Description: "A 16-element 4x4 column-major colour matrix. A 9-element 3x3 column-major matrix is also accepted.",
				MinItems:    genai.Ptr[int64](9),
				MaxItems:    genai.Ptr[int64](16),
			},
			"factory":    text("Pre-defined matrix. Supported values: 'createGrayscaleFilter', 'createInvertedFilter'."),
			"hue":        number("Hue adjustment in degrees (-180 to 180)."),
			"saturation": number("Saturation adjustment added to the saturation channel."),
			"lightness":  number("Lightness adjustment added to the lightness channel."),
			"alphaScale": number("Multiplier for the alpha channel. 0.0 is fully transparent, 1.0 is no change."),
		},
	}

	uniform := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"parameterName": text("Identifier of the uniform exactly as declared in the shader."),
			"displayName":   text("Label shown next to the control."),
			"description":   text(""),
			"type": {
				Type: genai.TypeString,
				Enum: []string{string(KindFloat), string(KindVec2), string(KindVec3), string(KindVec4), string(KindInt)},
			},
			"valueRange": {
				Type:        genai.TypeArray,
				Items:       number(""),
				Description: "Inclusive [min, max]. Required for float and int uniforms.",
				MinItems:    genai.Ptr[int64](2),
				MaxItems:    genai.Ptr[int64](2),
			},
			"defaultValue": {
				Type:        genai.TypeArray,
				Items:       number(""),
				Description: "Initial value. One element for float and int, otherwise one element per vector component.",
				MinItems:    genai.Ptr[int64](1),
				MaxItems:    genai.Ptr[int64](4),
			},
		},
		Required:         []string{"parameterName", "type", "defaultValue"},
		PropertyOrdering: []string{"parameterName", "displayName", "description", "type", "valueRange", "defaultValue"},
	}

	effect := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"effectType": {
				Type: genai.TypeString,
				Enum: []string{string(EffectTypeWellKnown), string(EffectTypeCustom)},
			},
			"name":         text("Operation name for well_known effects, a short title for custom ones."),
			"description":  text(""),
			"parameters":   parameters,
			"shaderSource": text("GLSL fragment shader source, using the provided template."),
			"uniforms":     {Type: genai.TypeArray, Items: uniform},
		},
		Required:         []string{"effectType", "name"},
		PropertyOrdering: []string{"effectType", "name", "description", "parameters", "shaderSource", "uniforms"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":    text("A short and catchy name to show the user."),
			"effects": {Type: genai.TypeArray, Items: effect},
		},
		Required:         []string{"name", "effects"},
		PropertyOrdering: []string{"name", "effects"},
	}
}
