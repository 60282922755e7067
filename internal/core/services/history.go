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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-vibe-effects/internal/core/model"
	"google.golang.org/api/iterator"
)

// DefaultListLimit bounds history listings when the caller gives no limit.
const DefaultListLimit = 50

// HistoryService reads pipeline records and hands out download links for the
// specs they were translated from.
type HistoryService struct {
	BigqueryClient *bigquery.Client
	StorageClient  *storage.Client
	IAMClient      *credentials.IamCredentialsClient
	SignerEmail    string
	DatasetName    string
	PipelineTable  string
}

// GetFQN returns the table name in standard SQL form, project.dataset.table.
func (s *HistoryService) GetFQN() string {
	fqn := s.BigqueryClient.Dataset(s.DatasetName).Table(s.PipelineTable).FullyQualifiedName()
	return strings.Replace(fqn, ":", ".", 1)
}

// List returns the newest records first.
//
// Inputs:
//   - ctx: The request context.
//   - session: Restricts the listing to one session when non-empty.
//   - limit: Maximum rows; zero or less means DefaultListLimit.
//
// Outputs:
//   - []*model.EffectPipelineRecord: Never nil, possibly empty.
//   - error: Query or iteration failure.
func (s *HistoryService) List(ctx context.Context, session string, limit int) ([]*model.EffectPipelineRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	params := []bigquery.QueryParameter{{Name: "limit", Value: limit}}
	text := fmt.Sprintf(QryListPipelines, s.GetFQN())
	if session != "" {
		text = fmt.Sprintf(QryListSessionPipelines, s.GetFQN())
		params = append(params, bigquery.QueryParameter{Name: "session", Value: session})
	}
	q := s.BigqueryClient.Query(text)
	q.Parameters = params

	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.EffectPipelineRecord, 0)
	for {
		record := &model.EffectPipelineRecord{}
		err := itr.Next(record)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

// Get returns the record with the given id.
func (s *HistoryService) Get(ctx context.Context, id string) (*model.EffectPipelineRecord, error) {
	q := s.BigqueryClient.Query(fmt.Sprintf(QryFindPipelineById, s.GetFQN()))
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: id}}
	itr, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	record := &model.EffectPipelineRecord{}
	err = itr.Next(record)
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}
	return record, err
}

// ParseGCSURI splits gs://bucket/object into its parts.
func ParseGCSURI(uri string) (bucket string, object string, err error) {
	path, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	bucket, object, ok = strings.Cut(path, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid GCS URI: unable to determine bucket and object from %s", uri)
	}
	return bucket, object, nil
}

// GenerateSignedURL returns a V4 GET URL for a gs:// object, signed by
// SignerEmail through the IAM credentials API so no key file is needed.
func (s *HistoryService) GenerateSignedURL(ctx context.Context, gcsURI string, expires time.Duration) (string, error) {
	bucketName, objectName, err := ParseGCSURI(gcsURI)
	if err != nil {
		return "", err
	}
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
		SignBytes: func(b []byte) ([]byte, error) {
			resp, err := s.IAMClient.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			})
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}
	u, err := s.StorageClient.Bucket(bucketName).SignedURL(objectName, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", bucketName, objectName, err)
	}
	return u, nil
}
