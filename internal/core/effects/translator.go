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

// Translation happens in three tolerance tiers:
//
//  1. Payload: text that is not a JSON object with an "effects" array yields
//     an empty pipeline and ErrMalformedSpec.
//  2. Entry: an entry that cannot be resolved is dropped and logged.
//  3. Uniform: a bad uniform declaration is dropped from its custom effect,
//     which is otherwise kept.
//
// Every surviving entry keeps its position relative to the others.

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cast"
)

// Wire keys. The aliases are the names used by earlier generations of the
// prompt and are still accepted.
const (
	keyName             = "name"
	keyDescription      = "description"
	keyEffectType       = "effectType"
	keyParameters       = "parameters"
	keyShaderSource     = "shaderSource"
	keyShaderSourceAlt  = "glslFragmentShader"
	keyUniforms         = "uniforms"
	keyParameterName    = "parameterName"
	keyDisplayName      = "displayName"
	keyType             = "type"
	keyTypeAlt          = "valueType"
	keyValueRange       = "valueRange"
	keyDefaultValue     = "defaultValue"
	keyFactory          = "factory"
	keyRgbMatrix        = "rgbMatrix"
	effectTypeMedia3Alt = "media3"
)

var effectsPath = jp.MustParseString("$.effects")

// Translator converts raw model output into a Pipeline. The zero value is
// ready to use and logs to slog.Default().
type Translator struct {
	Logger *slog.Logger
	// MaxEffects caps the number of entries considered. Zero means no limit.
	MaxEffects int
	// KeepFences disables removal of a surrounding Markdown code fence.
	KeepFences bool
}

// NewTranslator creates a translator with no effect limit that strips code
// fences.
//
// Inputs:
//   - logger: Receives a WARN for every dropped entry or uniform. A nil
//     logger falls back to slog.Default().
//
// Outputs:
//   - *Translator: Translate keeps no state between calls, so one
//     translator may serve concurrent requests once its fields are set.
func NewTranslator(logger *slog.Logger) *Translator {
	return &Translator{Logger: logger}
}

// Translate runs a zero-value Translator over raw.
func Translate(raw string) (*Pipeline, error) {
	return (&Translator{}).Translate(raw)
}

func (t *Translator) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// Translate parses raw and resolves its effects in order. The returned
// pipeline is never nil; when err is non-nil it wraps ErrMalformedSpec and
// the pipeline has no effects.
func (t *Translator) Translate(raw string) (*Pipeline, error) {
	out := &Pipeline{Effects: make([]Descriptor, 0)}
	text := raw
	if !t.KeepFences {
		text = StripCodeFence(raw)
	}

	root, err := oj.ParseString(text)
	if err != nil {
		return out, t.malformed(fmt.Errorf("decode: %w", err))
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return out, t.malformed(fmt.Errorf("top-level value is %T, want object", root))
	}
	found := effectsPath.Get(obj)
	if len(found) == 0 {
		return out, t.malformed(errors.New("missing effects field"))
	}
	entries, ok := found[0].([]any)
	if !ok {
		return out, t.malformed(fmt.Errorf("effects is %T, want array", found[0]))
	}

	out.Name = strings.TrimSpace(stringField(obj, keyName))
	out.Requested = len(entries)
	for i, entry := range entries {
		if t.MaxEffects > 0 && i >= t.MaxEffects {
			out.Diagnostics = append(out.Diagnostics, Diagnostic{EffectIndex: i, Reason: "effect limit reached"})
			continue
		}
		d, err := t.resolveEntry(out, i, entry)
		if err != nil {
			t.logger().Warn("dropping effect entry", "index", i, "error", err)
			out.Diagnostics = append(out.Diagnostics, Diagnostic{EffectIndex: i, Reason: err.Error()})
			continue
		}
		out.Effects = append(out.Effects, d)
	}
	if t.MaxEffects > 0 && len(entries) > t.MaxEffects {
		t.logger().Warn("effect limit reached", "limit", t.MaxEffects, "requested", len(entries))
	}
	return out, nil
}

func (t *Translator) malformed(err error) error {
	wrapped := fmt.Errorf("%w: %w", ErrMalformedSpec, err)
	t.logger().Error("cannot translate effect spec", "error", wrapped)
	return wrapped
}

func (t *Translator) resolveEntry(p *Pipeline, index int, raw any) (Descriptor, error) {
	entry, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: entry is %T, want object", ErrUnresolvedEntry, raw)
	}
	effectType := strings.ToLower(strings.TrimSpace(stringField(entry, keyEffectType)))
	switch effectType {
	case string(EffectTypeWellKnown), effectTypeMedia3Alt:
		return resolveStandard(entry)
	case string(EffectTypeCustom):
		return t.resolveCustom(p, index, entry)
	}
	return nil, fmt.Errorf("%w: unknown effectType %q", ErrUnresolvedEntry, effectType)
}

func resolveStandard(entry map[string]any) (Descriptor, error) {
	name := strings.TrimSpace(stringField(entry, keyName))
	params, _ := entry[keyParameters].(map[string]any)

	var op Operation
	switch OperationName(name) {
	case OpBrightness:
		op = Brightness{Level: floatParam(params, "brightness", 0)}
	case OpContrast:
		op = Contrast{Level: floatParam(params, "contrast", 1)}
	case OpAlphaScale:
		op = AlphaScale{Scale: floatParam(params, "alphaScale", 1)}
	case OpRgbFilter:
		m, err := resolveRgbFilter(params)
		if err != nil {
			return nil, err
		}
		op = m
	case OpHslAdjustment:
		op = HslAdjustment{
			Hue:        floatParam(params, "hue", 0),
			Saturation: floatParam(params, "saturation", 0),
			Lightness:  floatParam(params, "lightness", 0),
		}
	default:
		return nil, fmt.Errorf("%w: unsupported operation %q", ErrUnresolvedEntry, name)
	}
	return &StandardEffect{
		Name:        name,
		Description: stringField(entry, keyDescription),
		Operation:   op,
	}, nil
}

// resolveRgbFilter prefers a known factory over an explicit matrix.
func resolveRgbFilter(params map[string]any) (RgbMatrix, error) {
	if m, ok := PresetMatrix(strings.TrimSpace(stringField(params, keyFactory))); ok {
		return m, nil
	}
	items, ok := params[keyRgbMatrix].([]any)
	if !ok {
		return RgbMatrix{}, fmt.Errorf("%w: RgbFilter has neither a known factory nor an rgbMatrix", ErrUnresolvedEntry)
	}
	values := make([]float32, len(items))
	for i, item := range items {
		f, err := toFloat32(item)
		if err != nil {
			return RgbMatrix{}, fmt.Errorf("%w: rgbMatrix[%d]: %w", ErrUnresolvedEntry, i, err)
		}
		values[i] = f
	}
	m, err := MatrixFromValues(values)
	if err != nil {
		return RgbMatrix{}, fmt.Errorf("%w: %w", ErrUnresolvedEntry, err)
	}
	return m, nil
}

func (t *Translator) resolveCustom(p *Pipeline, index int, entry map[string]any) (Descriptor, error) {
	source := stringField(entry, keyShaderSource, keyShaderSourceAlt)
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("%w: custom effect has no shader source", ErrUnresolvedEntry)
	}
	return &CustomShaderEffect{
		Name:         strings.TrimSpace(stringField(entry, keyName)),
		Description:  stringField(entry, keyDescription),
		Program:      SimpleFragment,
		ShaderSource: source,
		Uniforms:     t.resolveUniforms(p, index, entry[keyUniforms]),
	}, nil
}

// resolveUniforms keeps declaration order. When a parameter name repeats, the
// later declaration replaces the earlier one at the later position.
func (t *Translator) resolveUniforms(p *Pipeline, index int, raw any) []*Uniform {
	items, ok := raw.([]any)
	if !ok {
		if raw != nil {
			t.logger().Warn("ignoring uniforms that are not an array", "index", index)
		}
		return []*Uniform{}
	}

	resolved := make([]*Uniform, 0, len(items))
	seen := make(map[string]int, len(items))
	for j, item := range items {
		u, err := resolveUniform(item)
		if err != nil {
			t.logger().Warn("dropping uniform", "index", index, "uniform", j, "error", err)
			p.Diagnostics = append(p.Diagnostics, Diagnostic{EffectIndex: index, Parameter: uniformLabel(item, j), Reason: err.Error()})
			continue
		}
		if prev, dup := seen[u.Name]; dup {
			t.logger().Warn("duplicate uniform, keeping the last declaration", "index", index, "uniform", u.Name)
			p.Diagnostics = append(p.Diagnostics, Diagnostic{EffectIndex: index, Parameter: u.Name, Reason: "duplicate parameterName"})
			resolved[prev] = nil
		}
		seen[u.Name] = len(resolved)
		resolved = append(resolved, u)
	}

	out := resolved[:0]
	for _, u := range resolved {
		if u != nil {
			out = append(out, u)
		}
	}
	return out
}

func resolveUniform(raw any) (*Uniform, error) {
	spec, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: declaration is %T, want object", ErrUnresolvedUniform, raw)
	}
	name := strings.TrimSpace(stringField(spec, keyParameterName))
	if name == "" {
		return nil, fmt.Errorf("%w: missing parameterName", ErrUnresolvedUniform)
	}
	declared := stringField(spec, keyType, keyTypeAlt)
	kind, ok := ParseKind(declared)
	if !ok {
		return nil, fmt.Errorf("%w: %s has unknown type %q", ErrUnresolvedUniform, name, declared)
	}

	def, err := ParseValue(kind, spec[keyDefaultValue])
	if err != nil {
		return nil, fmt.Errorf("%w: %s defaultValue: %w", ErrUnresolvedUniform, name, err)
	}
	var rng *Range
	if kind.IsNumeric() {
		rng, err = parseRange(kind, spec[keyValueRange])
		if err != nil {
			return nil, fmt.Errorf("%w: %s valueRange: %w", ErrUnresolvedUniform, name, err)
		}
	}
	return NewUniform(name, stringField(spec, keyDisplayName), stringField(spec, keyDescription), def, rng), nil
}

func parseRange(kind Kind, raw any) (*Range, error) {
	items, ok := raw.([]any)
	if !ok || len(items) != 2 {
		return nil, errors.New("need [min, max]")
	}
	lo, err := ParseValue(kind, items[0])
	if err != nil {
		return nil, err
	}
	hi, err := ParseValue(kind, items[1])
	if err != nil {
		return nil, err
	}
	return &Range{Min: lo, Max: hi}, nil
}

func uniformLabel(raw any, pos int) string {
	if spec, ok := raw.(map[string]any); ok {
		if name := stringField(spec, keyParameterName); name != "" {
			return name
		}
	}
	return fmt.Sprintf("#%d", pos)
}

// stringField returns the first of keys present in m as a string. Scalars
// other than strings are formatted; objects and arrays are ignored.
func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		if s, err := cast.ToStringE(v); err == nil {
			return s
		}
	}
	return ""
}

// floatParam reads a numeric parameter, falling back to def when it is
// absent or unreadable.
func floatParam(params map[string]any, key string, def float32) float32 {
	v, ok := params[key]
	if !ok {
		return def
	}
	f, err := toFloat32(v)
	if err != nil {
		return def
	}
	return f
}

// StripCodeFence removes a Markdown code fence wrapping the whole text, as
// models often add one around JSON output.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
