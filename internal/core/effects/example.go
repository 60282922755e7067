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

// exampleDescription exercises both effect types and every uniform kind the
// model is likely to need.
const exampleDescription = `{
  "name": "Warm Vignette",
  "effects": [
    {
      "effectType": "well_known",
      "name": "Contrast",
      "description": "Slightly punchier image",
      "parameters": {"contrast": 1.2}
    },
    {
      "effectType": "well_known",
      "name": "HslAdjustment",
      "description": "Shift towards orange",
      "parameters": {"hue": 10, "saturation": 5}
    },
    {
      "effectType": "custom",
      "name": "Vignette",
      "description": "Darkens the frame edges",
      "shaderSource": "#version 100\nprecision mediump float;\nuniform sampler2D uTexSampler;\nuniform float uStrength;\nuniform vec3 uTint;\nvarying vec2 vTexSamplingCoord;\nvoid main() {\n  vec4 c = texture2D(uTexSampler, vTexSamplingCoord);\n  float d = distance(vTexSamplingCoord, vec2(0.5));\n  c.rgb *= mix(vec3(1.0), uTint, smoothstep(0.3, 0.8, d) * uStrength);\n  gl_FragColor = c;\n}\n",
      "uniforms": [
        {
          "parameterName": "uStrength",
          "displayName": "Strength",
          "description": "How dark the edges become",
          "type": "float",
          "valueRange": [0.0, 1.0],
          "defaultValue": [0.6]
        },
        {
          "parameterName": "uTint",
          "displayName": "Edge tint",
          "type": "vec3",
          "defaultValue": [0.2, 0.1, 0.0]
        }
      ]
    }
  ]
}`

// ExampleDescription returns a well-formed effect description, used as the
// few-shot example in generation prompts.
func ExampleDescription() string {
	return exampleDescription
}
