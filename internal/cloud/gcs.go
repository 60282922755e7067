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
	"encoding/json"
	"fmt"
)

// StorageObjectKind is the kind field of a GCS object notification.
const StorageObjectKind = "storage#object"

// GCSPubSubNotification is the JSON body Cloud Storage publishes when an
// object in a watched bucket changes. Only the fields used here are mapped.
type GCSPubSubNotification struct {
	Kind        string `json:"kind"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Bucket      string `json:"bucket"`
	Generation  string `json:"generation"`
	ContentType string `json:"contentType"`
	Size        string `json:"size"`
	TimeCreated string `json:"timeCreated"`
}

// GCSObject identifies one object in Cloud Storage.
type GCSObject struct {
	Bucket   string `json:"bucket"`
	Name     string `json:"name"`
	MIMEType string `json:"contentType,omitempty"`
}

// URI returns the gs:// form of the object.
func (o GCSObject) URI() string {
	return fmt.Sprintf("gs://%s/%s", o.Bucket, o.Name)
}

// ParseGCSNotification reports whether data is a storage object notification
// and returns the object it refers to.
func ParseGCSNotification(data []byte) (GCSObject, bool) {
	var n GCSPubSubNotification
	if err := json.Unmarshal(data, &n); err != nil || n.Kind != StorageObjectKind || n.Bucket == "" || n.Name == "" {
		return GCSObject{}, false
	}
	return GCSObject{Bucket: n.Bucket, Name: n.Name, MIMEType: n.ContentType}, true
}
