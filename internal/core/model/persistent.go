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

package model

import (
	"time"

	"github.com/google/uuid"
)

// EffectPipelineRecord is one row of the pipeline table: the outcome of a
// single translation.
type EffectPipelineRecord struct {
	Id          string    `json:"id" bigquery:"id"`                   // UUIDv5 of session and spec, see PipelineId.
	RequestId   string    `json:"request_id" bigquery:"request_id"`   // Id of the request that produced the spec.
	Session     string    `json:"session" bigquery:"session"`         // Session the pipeline was activated for.
	Name        string    `json:"name" bigquery:"name"`               // Pipeline name given by the model, may be empty.
	Prompt      string    `json:"prompt" bigquery:"prompt"`           // User prompt; empty for re-applied specs.
	Requested   int       `json:"requested" bigquery:"requested"`     // Entries in the payload.
	Resolved    int       `json:"resolved" bigquery:"resolved"`       // Entries that became effects.
	Custom      int       `json:"custom" bigquery:"custom"`           // Resolved entries that are custom shaders.
	SpecUrl     string    `json:"spec_url" bigquery:"spec_url"`       // gs:// URI of the archived raw spec.
	CreateDate  time.Time `json:"create_date" bigquery:"create_date"` // Translation time.
	Diagnostics []string  `json:"diagnostics" bigquery:"diagnostics"` // One line per dropped entry or uniform.
}

// NewEffectPipelineRecord derives the record id from the session and the
// raw spec, so re-applying the same spec to a session yields the same id.
func NewEffectPipelineRecord(session string, spec string) *EffectPipelineRecord {
	return &EffectPipelineRecord{
		Id:          PipelineId(session, spec),
		Session:     session,
		CreateDate:  time.Now(),
		Diagnostics: make([]string, 0),
	}
}

// PipelineId is the UUIDv5 of session and spec in the URL namespace.
func PipelineId(session string, spec string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(session+"\n"+spec)).String()
}

// NewRequestId returns a random id for requests that arrive without one.
func NewRequestId() string {
	return uuid.NewString()
}
