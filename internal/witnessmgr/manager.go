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

// Package witnessmgr owns the did:webvh witnessing state machine for log
// entries and attested resources. Like endorsement transactions, requests
// are persisted before any decision and decisions go to the agent first.
package witnessmgr

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/identifiers"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/msgs"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/settings"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/endapi"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/persistence"
	"gorm.io/gorm"
)

// AgentAPI is the subset of the agent admin API that executes witnessing
// decisions, keyed by record kind.
type AgentAPI interface {
	ApproveLogEntry(ctx context.Context, recordID string) error
	RejectLogEntry(ctx context.Context, recordID string) error
	ApproveAttestedResource(ctx context.Context, recordID string) error
	RejectAttestedResource(ctx context.Context, recordID string) error
}

// Policy answers whether one witnessing request is covered by the allow list.
type Policy interface {
	CanWitness(ctx context.Context, kind endapi.RecordKind, record *endapi.WitnessRecord) (bool, error)
}

type witnessRow struct {
	RecordID   string    `gorm:"column:record_id;primaryKey"`
	RecordKind string    `gorm:"column:record_kind"`
	State      string    `gorm:"column:state"`
	SCID       string    `gorm:"column:scid"`
	Domain     string    `gorm:"column:domain"`
	Namespace  string    `gorm:"column:namespace"`
	Identifier string    `gorm:"column:identifier"`
	Record     string    `gorm:"column:record"` // JSON
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (witnessRow) TableName() string {
	return "witness_requests"
}

func (r *witnessRow) toAPI() *endapi.WitnessRequest {
	req := &endapi.WitnessRequest{
		RecordID:   r.RecordID,
		RecordKind: endapi.RecordKind(r.RecordKind),
		State:      endapi.WitnessState(r.State),
		SCID:       r.SCID,
		Domain:     r.Domain,
		Namespace:  r.Namespace,
		Identifier: r.Identifier,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Record != "" {
		req.Record = json.RawMessage(r.Record)
	}
	return req
}

// ListFilter narrows List results. Zero values mean no restriction.
type ListFilter struct {
	State      endapi.WitnessState
	RecordKind endapi.RecordKind
	Limit      int
	Offset     int
}

type Manager struct {
	p        persistence.Persistence
	agent    AgentAPI
	settings settings.Provider
	policy   Policy
}

func NewManager(p persistence.Persistence, agent AgentAPI, settings settings.Provider, policy Policy) *Manager {
	return &Manager{p: p, agent: agent, settings: settings, policy: policy}
}

// Store persists a newly received witnessing request, deriving the DID
// decomposition from the attached record. Inserts only.
func (m *Manager) Store(ctx context.Context, kind endapi.RecordKind, payload *endapi.WitnessPayload) (*endapi.WitnessRequest, error) {
	record, err := parseRecord(ctx, payload.Record)
	if err != nil {
		return nil, err
	}

	recordID := payload.RecordID
	if recordID == "" && record != nil {
		recordID = record.ID
	}
	if recordID == "" {
		return nil, i18n.NewError(ctx, msgs.MsgWitnessRequestMissingID)
	}

	did, err := recordDID(ctx, kind, recordID, record)
	if err != nil {
		return nil, err
	}
	if payload.SCID != "" && payload.SCID != did.SCID {
		// Trust the identifier in the record itself over the envelope
		log.L(ctx).Warnf("Witness request %s reports scid %s but its record carries %s", recordID, payload.SCID, did.SCID)
	}

	state := payload.State
	if state == "" {
		state = endapi.WitnessStatePending
	}
	row := &witnessRow{
		RecordID:   recordID,
		RecordKind: string(kind),
		State:      string(state),
		SCID:       did.SCID,
		Domain:     did.Domain,
		Namespace:  did.Namespace,
		Identifier: did.Identifier,
		Record:     string(payload.Record),
	}
	if err := m.p.DB().WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, i18n.NewError(ctx, msgs.MsgWitnessRequestExists, recordID)
		}
		return nil, err
	}
	return row.toAPI(), nil
}

func parseRecord(ctx context.Context, raw json.RawMessage) (*endapi.WitnessRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var record endapi.WitnessRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, i18n.NewError(ctx, msgs.MsgWebhookPayloadInvalid, err)
	}
	return &record, nil
}

// recordDID locates the did:webvh DID inside the record. Log entries carry
// it as the state id; attested resources prefix their resource id with it.
func recordDID(ctx context.Context, kind endapi.RecordKind, recordID string, record *endapi.WitnessRecord) (*identifiers.WebVHDID, error) {
	switch kind {
	case endapi.RecordKindLogEntry:
		if record == nil || record.State == nil || record.State.ID == "" {
			return nil, i18n.NewError(ctx, msgs.MsgWitnessRecordMissingDID, recordID)
		}
		return identifiers.ParseWebVHDID(ctx, record.State.ID)
	case endapi.RecordKindAttestedResource:
		resourceID := recordID
		if record != nil && record.ID != "" {
			resourceID = record.ID
		}
		did, err := identifiers.ResourceDID(ctx, resourceID)
		if err != nil {
			return nil, err
		}
		return identifiers.ParseWebVHDID(ctx, did)
	default:
		return nil, i18n.NewError(ctx, msgs.MsgUnsupportedRecordKind, kind)
	}
}

func (m *Manager) Get(ctx context.Context, recordID string) (*endapi.WitnessRequest, error) {
	var row witnessRow
	err := m.p.DB().WithContext(ctx).First(&row, "record_id = ?", recordID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, i18n.NewError(ctx, msgs.MsgWitnessRequestNotFound, recordID)
		}
		return nil, err
	}
	return row.toAPI(), nil
}

func (m *Manager) List(ctx context.Context, filter ListFilter) ([]*endapi.WitnessRequest, error) {
	q := m.p.DB().WithContext(ctx).Order("created_at")
	if filter.State != "" {
		q = q.Where("state = ?", string(filter.State))
	}
	if filter.RecordKind != "" {
		q = q.Where("record_kind = ?", string(filter.RecordKind))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var rows []*witnessRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	reqs := make([]*endapi.WitnessRequest, len(rows))
	for i, row := range rows {
		reqs[i] = row.toAPI()
	}
	return reqs, nil
}

// Approve witnesses the record via the agent and marks it witnessed.
// Re-approving is a no-op.
func (m *Manager) Approve(ctx context.Context, recordID string) (*endapi.WitnessRequest, error) {
	return m.decide(ctx, recordID, endapi.WitnessStateWitnessed)
}

// Reject refuses to witness the record via the agent and marks it rejected.
// Re-rejecting is a no-op.
func (m *Manager) Reject(ctx context.Context, recordID string) (*endapi.WitnessRequest, error) {
	return m.decide(ctx, recordID, endapi.WitnessStateRejected)
}

func (m *Manager) decide(ctx context.Context, recordID string, target endapi.WitnessState) (*endapi.WitnessRequest, error) {
	req, err := m.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if req.State == target {
		log.L(ctx).Debugf("Witness request %s already in state %s", recordID, target)
		return req, nil
	}
	if req.State != endapi.WitnessStatePending {
		return nil, i18n.NewError(ctx, msgs.MsgWitnessWrongState, recordID, req.State)
	}

	approve := target == endapi.WitnessStateWitnessed
	switch req.RecordKind {
	case endapi.RecordKindLogEntry:
		if approve {
			err = m.agent.ApproveLogEntry(ctx, recordID)
		} else {
			err = m.agent.RejectLogEntry(ctx, recordID)
		}
	case endapi.RecordKindAttestedResource:
		if approve {
			err = m.agent.ApproveAttestedResource(ctx, recordID)
		} else {
			err = m.agent.RejectAttestedResource(ctx, recordID)
		}
	default:
		return nil, i18n.NewError(ctx, msgs.MsgUnsupportedRecordKind, req.RecordKind)
	}
	if err != nil {
		return nil, err
	}

	if err := m.UpdateState(ctx, recordID, target); err != nil {
		return nil, err
	}
	return m.Get(ctx, recordID)
}

func (m *Manager) UpdateState(ctx context.Context, recordID string, state endapi.WitnessState) error {
	res := m.p.DB().WithContext(ctx).
		Model(&witnessRow{}).
		Where("record_id = ?", recordID).
		Update("state", string(state))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return i18n.NewError(ctx, msgs.MsgWitnessRequestNotFound, recordID)
	}
	return nil
}

// AutoDecide applies the witnessing decision order: global auto-endorsement
// first, then the allow list, then the reject-by-default switch. Anything
// left stays pending for a manual decision.
func (m *Manager) AutoDecide(ctx context.Context, req *endapi.WitnessRequest) (*endapi.WitnessRequest, error) {
	if req.State != endapi.WitnessStatePending {
		log.L(ctx).Debugf("Witness request %s in state %s needs no decision", req.RecordID, req.State)
		return req, nil
	}

	autoEndorse, err := m.settings.GetBool(ctx, settings.AutoEndorseRequests)
	if err != nil {
		return nil, err
	}
	if autoEndorse {
		log.L(ctx).Infof("Witnessing %s: auto-endorsement is on", req.RecordID)
		return m.Approve(ctx, req.RecordID)
	}

	record, err := parseRecord(ctx, req.Record)
	if err != nil {
		return nil, err
	}
	if record != nil {
		allowed, err := m.policy.CanWitness(ctx, req.RecordKind, record)
		if err != nil {
			return nil, err
		}
		if allowed {
			log.L(ctx).Infof("Witnessing %s: covered by the allow list", req.RecordID)
			return m.Approve(ctx, req.RecordID)
		}
	}

	rejectByDefault, err := m.settings.GetBool(ctx, settings.RejectByDefault)
	if err != nil {
		return nil, err
	}
	if rejectByDefault {
		log.L(ctx).Infof("Rejecting witness request %s: reject-by-default is on", req.RecordID)
		return m.Reject(ctx, req.RecordID)
	}

	log.L(ctx).Infof("Witness request %s left pending for a manual decision", req.RecordID)
	return req, nil
}
