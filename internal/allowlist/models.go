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

package allowlist

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Wildcard matches any value in the field it is stored in.
const Wildcard = "*"

// PublicDID allows NYM/ATTRIB transactions targeting the registered DID.
type PublicDID struct {
	RegisteredDID string    `gorm:"column:registered_did;primaryKey" json:"registered_did"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (PublicDID) TableName() string {
	return "allowed_public_dids"
}

// Schema allows publication of a named schema version by an author DID.
// The ID is derived from the content fields so re-adding the same entry
// collides rather than duplicating.
type Schema struct {
	ID         uuid.UUID `gorm:"column:allowed_schema_id;primaryKey" json:"allowed_schema_id"`
	AuthorDID  string    `gorm:"column:author_did" json:"author_did"`
	SchemaName string    `gorm:"column:schema_name" json:"schema_name"`
	Version    string    `gorm:"column:version" json:"version"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Schema) TableName() string {
	return "allowed_schemas"
}

func (s *Schema) BeforeCreate(tx *gorm.DB) error {
	s.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(s.AuthorDID+s.SchemaName+s.Version))
	return nil
}

// CredDef allows publication of a credential definition, and via the
// RevRegDef/RevRegEntry flags the revocation artifacts that hang off it.
type CredDef struct {
	ID          uuid.UUID `gorm:"column:allowed_cred_def_id;primaryKey" json:"allowed_cred_def_id"`
	IssuerDID   string    `gorm:"column:issuer_did" json:"issuer_did"`
	AuthorDID   string    `gorm:"column:author_did" json:"author_did"`
	SchemaName  string    `gorm:"column:schema_name" json:"schema_name"`
	Version     string    `gorm:"column:version" json:"version"`
	Tag         string    `gorm:"column:tag" json:"tag"`
	RevRegDef   bool      `gorm:"column:rev_reg_def" json:"rev_reg_def"`
	RevRegEntry bool      `gorm:"column:rev_reg_entry" json:"rev_reg_entry"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (CredDef) TableName() string {
	return "allowed_credential_definitions"
}

func (c *CredDef) BeforeCreate(tx *gorm.DB) error {
	c.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(c.IssuerDID+c.AuthorDID+c.SchemaName+c.Version+c.Tag))
	return nil
}

// LogEntry allows did:webvh log entry witnessing for DIDs matching the
// decomposed identifier fields.
type LogEntry struct {
	ID         uuid.UUID `gorm:"column:allowed_log_entry_id;primaryKey" json:"allowed_log_entry_id"`
	SCID       string    `gorm:"column:scid" json:"scid"`
	Domain     string    `gorm:"column:domain" json:"domain"`
	Namespace  string    `gorm:"column:namespace" json:"namespace"`
	Identifier string    `gorm:"column:identifier" json:"identifier"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (LogEntry) TableName() string {
	return "allowed_log_entries"
}

func (l *LogEntry) BeforeCreate(tx *gorm.DB) error {
	l.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(l.SCID+l.Domain+l.Namespace+l.Identifier))
	return nil
}
