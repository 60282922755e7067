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

import "errors"

var (
	// ErrMalformedSpec is returned when the whole payload cannot be read as an
	// effect description. The accompanying pipeline is empty.
	ErrMalformedSpec = errors.New("malformed effect spec")

	// ErrUnresolvedEntry describes an effects entry that was dropped. It is only
	// ever logged or recorded as a diagnostic.
	ErrUnresolvedEntry = errors.New("unresolved effect entry")

	// ErrUnresolvedUniform describes a uniform declaration that was dropped from
	// an otherwise valid custom effect.
	ErrUnresolvedUniform = errors.New("unresolved uniform")

	// ErrKindMismatch is returned when a uniform is assigned a value of another kind.
	ErrKindMismatch = errors.New("uniform kind mismatch")
)
