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

// Package connections tracks the author agent connections and drives their
// provisioning lifecycle: accept the request, then exchange endorser role
// and info once the connection completes.
package connections

import (
	"context"
	"errors"
	"time"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/msgs"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/settings"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/endapi"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/persistence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AgentAPI is the subset of the agent admin API used for connection
// provisioning.
type AgentAPI interface {
	GetPublicDID(ctx context.Context) (string, error)
	AcceptConnectionRequest(ctx context.Context, connectionID string) error
	SetEndorserRole(ctx context.Context, connectionID string) error
	SetEndorserInfo(ctx context.Context, connectionID, endorserDID, endorserName string) error
}

type connectionRow struct {
	ConnectionID  string    `gorm:"column:connection_id;primaryKey"`
	Alias         string    `gorm:"column:alias"`
	TheirLabel    string    `gorm:"column:their_label"`
	PublicDID     string    `gorm:"column:public_did"`
	State         string    `gorm:"column:state"`
	Protocol      string    `gorm:"column:connection_protocol"`
	AuthorStatus  string    `gorm:"column:author_status"`
	EndorseStatus string    `gorm:"column:endorse_status"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (connectionRow) TableName() string {
	return "connections"
}

func (r *connectionRow) toAPI() *endapi.Connection {
	return &endapi.Connection{
		ConnectionID:  r.ConnectionID,
		Alias:         r.Alias,
		TheirLabel:    r.TheirLabel,
		PublicDID:     r.PublicDID,
		State:         r.State,
		Protocol:      r.Protocol,
		AuthorStatus:  endapi.AuthorStatus(r.AuthorStatus),
		EndorseStatus: endapi.EndorseStatus(r.EndorseStatus),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type Manager struct {
	p            persistence.Persistence
	agent        AgentAPI
	settings     settings.Provider
	endorserName string
}

func NewManager(p persistence.Persistence, agent AgentAPI, settings settings.Provider, endorserName string) *Manager {
	return &Manager{p: p, agent: agent, settings: settings, endorserName: endorserName}
}

// StoreRequest upserts the connection as seen in a webhook event. The
// decision columns are only seeded on first sight, never overwritten by
// later state reports.
func (m *Manager) StoreRequest(ctx context.Context, payload *endapi.ConnectionPayload) (*endapi.Connection, error) {
	row := &connectionRow{
		ConnectionID:  payload.ConnectionID,
		Alias:         payload.Alias,
		TheirLabel:    payload.TheirLabel,
		PublicDID:     payload.TheirPublicDID,
		State:         payload.State,
		Protocol:      payload.ConnectionProtocol,
		AuthorStatus:  string(endapi.AuthorStatusPending),
		EndorseStatus: string(endapi.EndorseStatusManual),
	}
	err := m.p.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "connection_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"alias", "their_label", "state", "updated_at"}),
		}).
		Create(row).
		Error
	if err != nil {
		return nil, err
	}
	return m.Get(ctx, payload.ConnectionID)
}

// UpdateState records a new connection state from the agent.
func (m *Manager) UpdateState(ctx context.Context, connectionID, state string) error {
	res := m.p.DB().WithContext(ctx).
		Model(&connectionRow{}).
		Where("connection_id = ?", connectionID).
		Update("state", state)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return i18n.NewError(ctx, msgs.MsgConnectionNotFound, connectionID)
	}
	return nil
}

// AcceptRequest tells the agent to accept an inbound connection request,
// called when the auto-accept switch is on.
func (m *Manager) AcceptRequest(ctx context.Context, connectionID string) error {
	autoAccept, err := m.settings.GetBool(ctx, settings.AutoAcceptConnections)
	if err != nil {
		return err
	}
	if !autoAccept {
		log.L(ctx).Infof("Connection %s left for manual acceptance", connectionID)
		return nil
	}
	return m.agent.AcceptConnectionRequest(ctx, connectionID)
}

// Provision completes author setup once the connection reaches its final
// state: advertise the endorser role, then share the endorser's public DID
// and name. Skipped when author auto-acceptance is off.
func (m *Manager) Provision(ctx context.Context, connectionID string) error {
	autoAccept, err := m.settings.GetBool(ctx, settings.AutoAcceptAuthors)
	if err != nil {
		return err
	}
	if !autoAccept {
		log.L(ctx).Infof("Author %s left for manual provisioning", connectionID)
		return nil
	}
	if err := m.agent.SetEndorserRole(ctx, connectionID); err != nil {
		return err
	}
	endorserDID, err := m.agent.GetPublicDID(ctx)
	if err != nil {
		return err
	}
	if err := m.agent.SetEndorserInfo(ctx, connectionID, endorserDID, m.endorserName); err != nil {
		return err
	}
	res := m.p.DB().WithContext(ctx).
		Model(&connectionRow{}).
		Where("connection_id = ?", connectionID).
		Update("author_status", string(endapi.AuthorStatusActive))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return i18n.NewError(ctx, msgs.MsgConnectionNotFound, connectionID)
	}
	return nil
}

func (m *Manager) Get(ctx context.Context, connectionID string) (*endapi.Connection, error) {
	var row connectionRow
	err := m.p.DB().WithContext(ctx).First(&row, "connection_id = ?", connectionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, i18n.NewError(ctx, msgs.MsgConnectionNotFound, connectionID)
		}
		return nil, err
	}
	return row.toAPI(), nil
}

func (m *Manager) List(ctx context.Context) ([]*endapi.Connection, error) {
	var rows []*connectionRow
	if err := m.p.DB().WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	conns := make([]*endapi.Connection, len(rows))
	for i, row := range rows {
		conns[i] = row.toAPI()
	}
	return conns, nil
}

// SetEndorseStatus is the administrative override that pins a connection to
// auto_endorse, auto_reject or manual handling.
func (m *Manager) SetEndorseStatus(ctx context.Context, connectionID string, status endapi.EndorseStatus) (*endapi.Connection, error) {
	switch status {
	case endapi.EndorseStatusManual, endapi.EndorseStatusAutoAccept, endapi.EndorseStatusAutoReject:
	default:
		return nil, i18n.NewError(ctx, msgs.MsgInvalidEndorseStatus, status)
	}
	res := m.p.DB().WithContext(ctx).
		Model(&connectionRow{}).
		Where("connection_id = ?", connectionID).
		Update("endorse_status", string(status))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, i18n.NewError(ctx, msgs.MsgConnectionNotFound, connectionID)
	}
	return m.Get(ctx, connectionID)
}
