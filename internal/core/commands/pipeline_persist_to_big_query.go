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
	"context"
	"fmt"
	"log/slog"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/cor"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/model"
)

// RecordInserter is satisfied by *bigquery.Inserter.
type RecordInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// PipelinePersistToBigQuery streams the pipeline record into the history table.
type PipelinePersistToBigQuery struct {
	cor.BaseCommand
	inserter RecordInserter
}

// NewPipelinePersistToBigQuery creates the step that appends the pipeline
// record to BigQuery.
//
// Inputs:
//   - name: A string name for this command instance.
//   - inserter: The table inserter; *bigquery.Inserter in production.
//
// Outputs:
//   - *PipelinePersistToBigQuery: Reads and re-publishes ParamRecord.
func NewPipelinePersistToBigQuery(name string, inserter RecordInserter) *PipelinePersistToBigQuery {
	out := &PipelinePersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), inserter: inserter}
	out.InputParamName = ParamRecord
	out.OutputParamName = ParamRecord
	return out
}

// Execute inserts the record. A failed insert fails the step, which stops
// the chain before the pipeline is activated.
func (s *PipelinePersistToBigQuery) Execute(context cor.Context) {
	record, ok := cor.Value[*model.EffectPipelineRecord](context, s.GetInputParam())
	if !ok {
		s.Fail(context, fmt.Errorf("missing pipeline record"))
		return
	}
	if err := s.inserter.Put(context.GetContext(), record); err != nil {
		s.Fail(context, fmt.Errorf("bigquery insert failed for pipeline '%s': %w", record.Id, err))
		return
	}
	slog.InfoContext(context.GetContext(), "persisted pipeline record", "id", record.Id, "session", record.Session)
	s.Succeed(context, record)
}
