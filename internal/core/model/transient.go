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

// Package model holds the records that move through the effect workflows.
// Transient types live only for one workflow run; persistent types are
// written to BigQuery.
package model

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrEmptyRequest is returned for requests with nothing to translate.
var ErrEmptyRequest = errors.New("effect request needs a prompt or a spec")

// EffectRequest asks for a new pipeline for a session. Either Prompt is sent
// to the model, or Spec (a previously generated description, possibly edited
// by the user) is translated as is.
type EffectRequest struct {
	RequestId string `json:"request_id,omitempty"` // Assigned by the reader when missing.
	Session   string `json:"session"`              // Defaults to "default".
	Prompt    string `json:"prompt,omitempty"`     // Natural language description of the look.
	Spec      string `json:"spec,omitempty"`       // Raw effect JSON; skips the model when set.
	// SpecObject is a gs:// URI set when the spec arrived as an uploaded object.
	SpecObject string `json:"spec_object,omitempty"`
}

// ParseEffectRequest decodes a request message. A message that is not JSON
// is taken to be a bare prompt.
func ParseEffectRequest(data string) (*EffectRequest, error) {
	trimmed := strings.TrimSpace(data)
	req := &EffectRequest{}
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), req); err != nil {
			return nil, err
		}
	} else {
		req.Prompt = trimmed
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// Validate reports ErrEmptyRequest when the request carries neither a
// prompt, an inline spec nor a spec object.
func (r *EffectRequest) Validate() error {
	if strings.TrimSpace(r.Prompt) == "" && strings.TrimSpace(r.Spec) == "" && r.SpecObject == "" {
		return ErrEmptyRequest
	}
	return nil
}

// IsReapply reports whether the request skips generation.
func (r *EffectRequest) IsReapply() bool {
	return strings.TrimSpace(r.Spec) != "" || r.SpecObject != ""
}
