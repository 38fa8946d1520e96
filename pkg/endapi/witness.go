// Copyright © 2025 OpenWallet Foundation contributors.
//
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package endapi

import (
	"encoding/json"
	"time"
)

// WitnessState is the lifecycle state of a did:webvh witnessing request.
// pending -> (witnessed | rejected)
type WitnessState string

const (
	WitnessStatePending   WitnessState = "pending"
	WitnessStateWitnessed WitnessState = "witnessed"
	WitnessStateRejected  WitnessState = "rejected"
)

// RecordKind distinguishes the two witnessable record families.
type RecordKind string

const (
	RecordKindLogEntry         RecordKind = "log-entry"
	RecordKindAttestedResource RecordKind = "attested-resource"
)

// Attested resource types, as carried in record metadata.
const (
	ResourceTypeSchema     = "anonCredsSchema"
	ResourceTypeCredDef    = "anonCredsCredDef"
	ResourceTypeRevRegDef  = "anonCredsRevRegDef"
	ResourceTypeStatusList = "anonCredsStatusList"
)

// LogEntryState is the "state" section of a did:webvh log entry, whose id
// is the full did:webvh DID being updated.
type LogEntryState struct {
	ID string `json:"id,omitempty"`
}

type ResourceMetadata struct {
	ResourceType string `json:"resourceType,omitempty"`
}

// ResourceContent is the union of content fields across the attested
// resource types. Absent fields are left empty.
type ResourceContent struct {
	IssuerID  string `json:"issuerId,omitempty"`
	Name      string `json:"name,omitempty"`
	Version   string `json:"version,omitempty"`
	Tag       string `json:"tag,omitempty"`
	SchemaID  string `json:"schemaId,omitempty"`
	CredDefID string `json:"credDefId,omitempty"`
	RevRegID  string `json:"revRegId,omitempty"`
}

// WitnessRecord is the decoded record attached to a witnessing request.
// Log entries carry State; attested resources carry ID, Metadata and Content.
type WitnessRecord struct {
	ID       string            `json:"id,omitempty"`
	State    *LogEntryState    `json:"state,omitempty"`
	Metadata *ResourceMetadata `json:"metadata,omitempty"`
	Content  *ResourceContent  `json:"content,omitempty"`
}

// WitnessPayload is the webhook payload shape for the log_entry_pending and
// attested_resource_pending topics.
type WitnessPayload struct {
	SCID       string          `json:"scid,omitempty"`
	State      WitnessState    `json:"state,omitempty"`
	RecordID   string          `json:"record_id,omitempty"`
	RecordType string          `json:"record_type,omitempty"`
	Record     json.RawMessage `json:"record,omitempty"`
}

// WitnessRequest is the domain record for one did:webvh witnessing request
// awaiting a decision.
type WitnessRequest struct {
	RecordID   string          `json:"record_id"`
	RecordKind RecordKind      `json:"record_kind"`
	State      WitnessState    `json:"state"`
	SCID       string          `json:"scid,omitempty"`
	Domain     string          `json:"domain,omitempty"`
	Namespace  string          `json:"namespace,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Record     json.RawMessage `json:"record,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
