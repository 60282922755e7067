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

package commands

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/cloud"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/cor"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/model"
)

// DefaultIncomingPrefix is where uploaded specs are expected when no prefix
// is configured.
const DefaultIncomingPrefix = "incoming/"

// EffectRequestReader decodes a message body into an EffectRequest. Storage
// notifications for specs uploaded under the incoming prefix become re-apply
// requests whose session is the object's parent folder. Notifications for any
// other object, the archived <pipeline-id>.json files included, are ignored:
// the reader publishes no request and records no error, so every later step
// skips and the message is acknowledged.
type EffectRequestReader struct {
	cor.BaseCommand
	incomingPrefix string
}

// NewEffectRequestReader creates the first step of the effect workflow.
//
// Inputs:
//   - name: the command name used for spans and counters.
//   - incomingPrefix: object prefix of uploaded specs; empty means
//     DefaultIncomingPrefix.
//
// Outputs:
//   - *EffectRequestReader: Stores its result under ParamRequest.
func NewEffectRequestReader(name string, incomingPrefix string) *EffectRequestReader {
	if incomingPrefix == "" {
		incomingPrefix = DefaultIncomingPrefix
	}
	out := &EffectRequestReader{BaseCommand: *cor.NewBaseCommand(name), incomingPrefix: incomingPrefix}
	out.OutputParamName = ParamRequest
	return out
}

// Execute accepts a *model.EffectRequest or a raw message body. A JSON
// request, a storage notification and a bare prompt are all understood.
func (r *EffectRequestReader) Execute(context cor.Context) {
	var (
		req *model.EffectRequest
		err error
	)
	switch in := context.Get(r.GetInputParam()).(type) {
	case *model.EffectRequest:
		req = in
		err = req.Validate()
	case string:
		if obj, ok := cloud.ParseGCSNotification([]byte(in)); ok {
			if !strings.HasPrefix(obj.Name, r.incomingPrefix) {
				slog.DebugContext(context.GetContext(), "ignoring object outside incoming prefix",
					"object", obj.URI(), "prefix", r.incomingPrefix)
				return
			}
			req = &model.EffectRequest{SpecObject: obj.URI(), Session: sessionFromObject(strings.TrimPrefix(obj.Name, r.incomingPrefix))}
		} else {
			req, err = model.ParseEffectRequest(in)
		}
	default:
		err = fmt.Errorf("unsupported input %T", in)
	}
	if err != nil {
		r.Fail(context, fmt.Errorf("failed to read effect request: %w", err))
		return
	}

	if req.RequestId == "" {
		req.RequestId = model.NewRequestId()
	}
	if strings.TrimSpace(req.Session) == "" {
		req.Session = DefaultSession
	}
	r.Succeed(context, req)
}

// sessionFromObject maps <session>/<file>.json, relative to the incoming
// prefix, to <session>.
func sessionFromObject(name string) string {
	dir := path.Base(path.Dir(name))
	if dir == "." || dir == "/" {
		return DefaultSession
	}
	return dir
}
