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

// Package services holds the long-lived state behind the API: the pipelines
// active per session, and read access to the pipeline history.
package services

import "errors"

var (
	ErrUnknownSession  = errors.New("no active pipeline for session")
	ErrEffectNotFound  = errors.New("effect not found")
	ErrUniformNotFound = errors.New("uniform not found")
	ErrInvalidValue    = errors.New("invalid uniform value")
	ErrRecordNotFound  = errors.New("pipeline record not found")
	ErrBinaryPayload   = errors.New("payload is binary media, not an effect spec")
)
