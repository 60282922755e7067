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

package cloud

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
)

// ObjectStore reads and writes whole objects. Specs are small, so nothing
// streams.
type ObjectStore interface {
	ReadObject(ctx context.Context, obj GCSObject, limit int64) ([]byte, error)
	WriteObject(ctx context.Context, obj GCSObject, data []byte) error
}

// GCSObjectStore is the Cloud Storage ObjectStore.
type GCSObjectStore struct {
	Client *storage.Client
}

// ReadObject reads at most limit bytes and fails when the object is larger.
// A limit of zero or less reads the whole object.
func (s *GCSObjectStore) ReadObject(ctx context.Context, obj GCSObject, limit int64) ([]byte, error) {
	reader, err := s.Client.Bucket(obj.Bucket).Object(obj.Name).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS reader for %s: %w", obj.URI(), err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			slog.WarnContext(ctx, "failed to close GCS reader", "object", obj.URI(), "error", err)
		}
	}()

	if limit > 0 && reader.Attrs.Size > limit {
		return nil, fmt.Errorf("%s is %d bytes, limit is %d", obj.URI(), reader.Attrs.Size, limit)
	}
	var src io.Reader = reader
	if limit > 0 {
		src = io.LimitReader(reader, limit)
	}
	return io.ReadAll(src)
}

// WriteObject replaces obj with data, using obj.MIMEType as the content
// type when set.
func (s *GCSObjectStore) WriteObject(ctx context.Context, obj GCSObject, data []byte) error {
	writer := s.Client.Bucket(obj.Bucket).Object(obj.Name).NewWriter(ctx)
	if obj.MIMEType != "" {
		writer.ContentType = obj.MIMEType
	}
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write %s: %w", obj.URI(), err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer for %s: %w", obj.URI(), err)
	}
	return nil
}
