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
)

// EffectType distinguishes standard from custom descriptors on the wire.
type EffectType string

const (
	EffectTypeWellKnown EffectType = "well_known"
	EffectTypeCustom    EffectType = "custom"
)

// ProgramKind identifies how a custom shader is to be run. Only single-pass
// fragment programs are produced.
type ProgramKind string

const SimpleFragment ProgramKind = "simple_fragment"

// Descriptor is one resolved effect: either a *StandardEffect or a
// *CustomShaderEffect.
type Descriptor interface {
	Kind() EffectType
	Label() string
	isDescriptor()
}

// StandardEffect is a built-in operation with its parameters resolved.
type StandardEffect struct {
	Name        string    // Display name from the payload.
	Description string    // Optional free text.
	Operation   Operation // The resolved operation and its parameters.
}

func (*StandardEffect) Kind() EffectType { return EffectTypeWellKnown }
func (s *StandardEffect) Label() string  { return s.Name }
func (*StandardEffect) isDescriptor()    {}

// MarshalJSON writes the effect in the wire shape the model produces, with
// the operation's parameters flattened under "parameters".
func (s *StandardEffect) MarshalJSON() ([]byte, error) {
	name, params, err := marshalOperation(s.Operation)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		EffectType  EffectType      `json:"effectType"`
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Operation   string          `json:"operation"`
		Parameters  json.RawMessage `json:"parameters,omitempty"`
	}{EffectTypeWellKnown, s.Name, s.Description, name, params})
}

// CustomShaderEffect is a fragment shader together with the uniforms a
// parameter editor binds to it.
type CustomShaderEffect struct {
	Name         string
	Description  string
	Program      ProgramKind // Always SimpleFragment today.
	ShaderSource string      // Fragment shader source, passed through unchanged.
	Uniforms     []*Uniform  // Resolved uniforms in declaration order, duplicates removed.
}

func (*CustomShaderEffect) Kind() EffectType { return EffectTypeCustom }
func (c *CustomShaderEffect) Label() string  { return c.Name }
func (*CustomShaderEffect) isDescriptor()    {}

// Uniform returns the uniform declared with the given parameter name.
func (c *CustomShaderEffect) Uniform(name string) (*Uniform, bool) {
	for _, u := range c.Uniforms {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// MarshalJSON writes the effect in the model's wire shape. Each uniform
// carries its declared default and its current value.
func (c *CustomShaderEffect) MarshalJSON() ([]byte, error) {
	uniforms := c.Uniforms
	if uniforms == nil {
		uniforms = []*Uniform{}
	}
	return json.Marshal(struct {
		EffectType   EffectType  `json:"effectType"`
		Name         string      `json:"name"`
		Description  string      `json:"description,omitempty"`
		Program      ProgramKind `json:"program"`
		ShaderSource string      `json:"shaderSource"`
		Uniforms     []*Uniform  `json:"uniforms"`
	}{EffectTypeCustom, c.Name, c.Description, c.Program, c.ShaderSource, uniforms})
}

// Diagnostic records why part of a payload was left out of a pipeline.
type Diagnostic struct {
	EffectIndex int    `json:"effectIndex"`         // Position of the entry in the payload.
	Parameter   string `json:"parameter,omitempty"` // Uniform name when a single uniform was dropped.
	Reason      string `json:"reason"`
}

// Pipeline is the ordered result of one translation.
type Pipeline struct {
	Name        string       `json:"name,omitempty"`
	Effects     []Descriptor `json:"effects"`               // Resolved effects in payload order.
	Requested   int          `json:"requested"`             // Entries in the payload, including dropped ones.
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"` // Why entries or uniforms were dropped.
}

// Uniforms returns every uniform of every custom effect in pipeline order.
func (p *Pipeline) Uniforms() []*Uniform {
	var out []*Uniform
	for _, d := range p.Effects {
		if c, ok := d.(*CustomShaderEffect); ok {
			out = append(out, c.Uniforms...)
		}
	}
	return out
}

// Release drops every listener registered on the pipeline's uniforms. It is
// called when the pipeline is replaced.
func (p *Pipeline) Release() {
	if p == nil {
		return
	}
	for _, u := range p.Uniforms() {
		u.unsubscribeAll()
	}
}
