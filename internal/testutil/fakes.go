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

package test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jaycherian/gcp-go-vibe-effects/internal/cloud"
	"google.golang.org/genai"
)

// FakeGenerator answers every GenerateContent call with Response, or with
// the next entry of Errors while any remain.
type FakeGenerator struct {
	mu       sync.Mutex
	Response string
	Errors   []error
	Prompts  []string
}

// GenerateContent records every prompt part.
func (g *FakeGenerator) GenerateContent(_ context.Context, content []*genai.Content) (*genai.GenerateContentResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range content {
		for _, p := range c.Parts {
			g.Prompts = append(g.Prompts, p.Text)
		}
	}
	if len(g.Errors) > 0 {
		err := g.Errors[0]
		g.Errors = g.Errors[1:]
		return nil, err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(g.Response, genai.RoleModel)}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     12,
			CandidatesTokenCount: 34,
		},
	}, nil
}

// Calls returns the number of prompt parts received.
func (g *FakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Prompts)
}

var ErrObjectNotFound = errors.New("object not found")

// MemoryStore is an ObjectStore backed by a map keyed by gs:// URI.
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Objects: make(map[string][]byte)}
}

func (s *MemoryStore) ReadObject(_ context.Context, obj cloud.GCSObject, limit int64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.Objects[obj.URI()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, obj.URI())
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("object %s exceeds %d bytes", obj.URI(), limit)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) WriteObject(_ context.Context, obj cloud.GCSObject, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[obj.URI()] = append([]byte(nil), data...)
	return nil
}

// RecordingInserter keeps every row handed to Put.
type RecordingInserter struct {
	mu   sync.Mutex
	Rows []any
	Err  error
}

func (r *RecordingInserter) Put(_ context.Context, src interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Rows = append(r.Rows, src)
	return nil
}
