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

package services

import (
	"fmt"

	"github.com/h2non/filetype"
)

// sniffLength is how much of a payload filetype needs to recognise it.
const sniffLength = 262

// SniffPayload rejects uploads that are recognisably images, video, audio,
// archives or other binary formats. Text of any kind passes.
func SniffPayload(data []byte) error {
	head := data
	if len(head) > sniffLength {
		head = head[:sniffLength]
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrBinaryPayload, kind.MIME.Value)
}
