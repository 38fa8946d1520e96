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

// Package allowlist persists the pre-approval tables the decision policy
// consults. A stored "*" in any string field matches every value of that
// field, so partial wildcards can pre-approve whole families of operations.
package allowlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/msgs"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/persistence"
	"gorm.io/gorm"
)

// SchemaCriteria carries the concrete values of a schema publication to be
// matched against the stored (possibly wildcarded) entries.
type SchemaCriteria struct {
	AuthorDID  string
	SchemaName string
	Version    string
}

type CredDefCriteria struct {
	IssuerDID   string
	AuthorDID   string
	SchemaName  string
	Version     string
	Tag         string
	RevRegDef   bool
	RevRegEntry bool
}

type LogEntryCriteria struct {
	SCID       string
	Domain     string
	Namespace  string
	Identifier string
}

type Store interface {
	AddPublicDID(ctx context.Context, did string) (*PublicDID, error)
	RemovePublicDID(ctx context.Context, did string) error
	ListPublicDIDs(ctx context.Context) ([]*PublicDID, error)
	MatchPublicDID(ctx context.Context, did string) (bool, error)

	AddSchema(ctx context.Context, entry *Schema) (*Schema, error)
	RemoveSchema(ctx context.Context, id uuid.UUID) error
	ListSchemas(ctx context.Context) ([]*Schema, error)
	MatchSchema(ctx context.Context, criteria SchemaCriteria) (bool, error)

	AddCredDef(ctx context.Context, entry *CredDef) (*CredDef, error)
	RemoveCredDef(ctx context.Context, id uuid.UUID) error
	ListCredDefs(ctx context.Context) ([]*CredDef, error)
	MatchCredDef(ctx context.Context, criteria CredDefCriteria) (bool, error)

	AddLogEntry(ctx context.Context, entry *LogEntry) (*LogEntry, error)
	RemoveLogEntry(ctx context.Context, id uuid.UUID) error
	ListLogEntries(ctx context.Context) ([]*LogEntry, error)
	MatchLogEntry(ctx context.Context, criteria LogEntryCriteria) (bool, error)

	// SetChangeListener registers a callback invoked after an entry is
	// committed, so pending work gated on the allow list can be retried.
	SetChangeListener(fn func(ctx context.Context))
}

type store struct {
	p        persistence.Persistence
	listener func(ctx context.Context)
}

func NewStore(p persistence.Persistence) Store {
	return &store{p: p}
}

func (s *store) SetChangeListener(fn func(ctx context.Context)) {
	s.listener = fn
}

// add inserts within a transaction so the change listener only fires once
// the entry is durably committed.
func (s *store) add(ctx context.Context, entry any, desc string) error {
	err := s.p.Transaction(ctx, func(ctx context.Context, dbTX persistence.DBTX) error {
		if err := dbTX.DB().Create(entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return i18n.NewError(ctx, msgs.MsgAllowListEntryExists, desc)
			}
			return err
		}
		if s.listener != nil {
			dbTX.AddPostCommit(s.listener)
		}
		return nil
	})
	return err
}

func (s *store) remove(ctx context.Context, model any, desc string, query string, args ...any) error {
	res := s.p.DB().WithContext(ctx).Where(query, args...).Delete(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return i18n.NewError(ctx, msgs.MsgAllowListEntryNotFound, desc)
	}
	return nil
}

func (s *store) AddPublicDID(ctx context.Context, did string) (*PublicDID, error) {
	entry := &PublicDID{RegisteredDID: did}
	if err := s.add(ctx, entry, did); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *store) RemovePublicDID(ctx context.Context, did string) error {
	return s.remove(ctx, &PublicDID{}, did, "registered_did = ?", did)
}

func (s *store) ListPublicDIDs(ctx context.Context) (entries []*PublicDID, err error) {
	err = s.p.DB().WithContext(ctx).Order("registered_did").Find(&entries).Error
	return entries, err
}

func (s *store) MatchPublicDID(ctx context.Context, did string) (bool, error) {
	var count int64
	err := s.p.DB().WithContext(ctx).Model(&PublicDID{}).
		Where("registered_did = ? OR registered_did = ?", did, Wildcard).
		Count(&count).Error
	return count > 0, err
}

func (s *store) AddSchema(ctx context.Context, entry *Schema) (*Schema, error) {
	desc := fmt.Sprintf("%s/%s/%s", entry.AuthorDID, entry.SchemaName, entry.Version)
	if err := s.add(ctx, entry, desc); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *store) RemoveSchema(ctx context.Context, id uuid.UUID) error {
	return s.remove(ctx, &Schema{}, id.String(), "allowed_schema_id = ?", id)
}

func (s *store) ListSchemas(ctx context.Context) (entries []*Schema, err error) {
	err = s.p.DB().WithContext(ctx).Order("created_at").Find(&entries).Error
	return entries, err
}

func (s *store) MatchSchema(ctx context.Context, criteria SchemaCriteria) (bool, error) {
	var count int64
	err := s.p.DB().WithContext(ctx).Model(&Schema{}).
		Where("author_did = ? OR author_did = ?", criteria.AuthorDID, Wildcard).
		Where("schema_name = ? OR schema_name = ?", criteria.SchemaName, Wildcard).
		Where("version = ? OR version = ?", criteria.Version, Wildcard).
		Count(&count).Error
	return count > 0, err
}

func (s *store) AddCredDef(ctx context.Context, entry *CredDef) (*CredDef, error) {
	desc := fmt.Sprintf("%s/%s/%s/%s/%s", entry.IssuerDID, entry.AuthorDID, entry.SchemaName, entry.Version, entry.Tag)
	if err := s.add(ctx, entry, desc); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *store) RemoveCredDef(ctx context.Context, id uuid.UUID) error {
	return s.remove(ctx, &CredDef{}, id.String(), "allowed_cred_def_id = ?", id)
}

func (s *store) ListCredDefs(ctx context.Context) (entries []*CredDef, err error) {
	err = s.p.DB().WithContext(ctx).Order("created_at").Find(&entries).Error
	return entries, err
}

// MatchCredDef requires the revocation flags to be set on the stored entry
// when the criteria asks for them. A stored entry with the flags on still
// matches a plain credential definition publication.
func (s *store) MatchCredDef(ctx context.Context, criteria CredDefCriteria) (bool, error) {
	q := s.p.DB().WithContext(ctx).Model(&CredDef{}).
		Where("issuer_did = ? OR issuer_did = ?", criteria.IssuerDID, Wildcard).
		Where("author_did = ? OR author_did = ?", criteria.AuthorDID, Wildcard).
		Where("schema_name = ? OR schema_name = ?", criteria.SchemaName, Wildcard).
		Where("version = ? OR version = ?", criteria.Version, Wildcard).
		Where("tag = ? OR tag = ?", criteria.Tag, Wildcard)
	if criteria.RevRegDef {
		q = q.Where("rev_reg_def = ?", true)
	}
	if criteria.RevRegEntry {
		q = q.Where("rev_reg_entry = ?", true)
	}
	var count int64
	err := q.Count(&count).Error
	return count > 0, err
}

func (s *store) AddLogEntry(ctx context.Context, entry *LogEntry) (*LogEntry, error) {
	desc := fmt.Sprintf("%s/%s/%s/%s", entry.SCID, entry.Domain, entry.Namespace, entry.Identifier)
	if err := s.add(ctx, entry, desc); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *store) RemoveLogEntry(ctx context.Context, id uuid.UUID) error {
	return s.remove(ctx, &LogEntry{}, id.String(), "allowed_log_entry_id = ?", id)
}

func (s *store) ListLogEntries(ctx context.Context) (entries []*LogEntry, err error) {
	err = s.p.DB().WithContext(ctx).Order("created_at").Find(&entries).Error
	return entries, err
}

func (s *store) MatchLogEntry(ctx context.Context, criteria LogEntryCriteria) (bool, error) {
	var count int64
	err := s.p.DB().WithContext(ctx).Model(&LogEntry{}).
		Where("scid = ? OR scid = ?", criteria.SCID, Wildcard).
		Where("domain = ? OR domain = ?", criteria.Domain, Wildcard).
		Where("namespace = ? OR namespace = ?", criteria.Namespace, Wildcard).
		Where("identifier = ? OR identifier = ?", criteria.Identifier, Wildcard).
		Count(&count).Error
	return count > 0, err
}
