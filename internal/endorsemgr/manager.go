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

// Package endorsemgr owns the endorsement transaction state machine. Every
// request is persisted before a decision is attempted, and every decision
// goes to the agent first so the locally stored state always reflects what
// the agent reported back.
package endorsemgr

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/msgs"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/settings"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/endapi"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/persistence"
	"gorm.io/gorm"
)

// AgentAPI is the subset of the agent admin API that executes decisions.
type AgentAPI interface {
	EndorseTransaction(ctx context.Context, txnID string) (endapi.TxnState, error)
	RefuseTransaction(ctx context.Context, txnID string) (endapi.TxnState, error)
}

// Policy answers whether one transaction is covered by the allow list.
type Policy interface {
	IsEndorsable(ctx context.Context, txn *endapi.EndorseTransaction) (bool, error)
}

// ConnectionLookup resolves the per-connection policy override.
type ConnectionLookup interface {
	Get(ctx context.Context, connectionID string) (*endapi.Connection, error)
}

type transactionRow struct {
	TransactionID      string    `gorm:"column:transaction_id;primaryKey"`
	ConnectionID       string    `gorm:"column:connection_id"`
	State              string    `gorm:"column:state"`
	AuthorDID          string    `gorm:"column:author_did"`
	AuthorGoalCode     string    `gorm:"column:author_goal_code"`
	EndorserDID        string    `gorm:"column:endorser_did"`
	TransactionType    string    `gorm:"column:transaction_type"`
	Transaction        string    `gorm:"column:transaction"`         // JSON
	TransactionRequest string    `gorm:"column:transaction_request"` // JSON
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (transactionRow) TableName() string {
	return "endorse_transactions"
}

func (r *transactionRow) toAPI() (*endapi.EndorseTransaction, error) {
	txn := &endapi.EndorseTransaction{
		TransactionID:   r.TransactionID,
		ConnectionID:    r.ConnectionID,
		State:           endapi.TxnState(r.State),
		AuthorDID:       r.AuthorDID,
		AuthorGoalCode:  r.AuthorGoalCode,
		EndorserDID:     r.EndorserDID,
		TransactionType: endapi.TxnType(r.TransactionType),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Transaction != "" {
		if err := json.Unmarshal([]byte(r.Transaction), &txn.Transaction); err != nil {
			return nil, err
		}
	}
	if r.TransactionRequest != "" {
		if err := json.Unmarshal([]byte(r.TransactionRequest), &txn.TransactionRequest); err != nil {
			return nil, err
		}
	}
	return txn, nil
}

// ListFilter narrows List results. Zero values mean no restriction.
type ListFilter struct {
	State        endapi.TxnState
	ConnectionID string
	Limit        int
	Offset       int
}

type Manager struct {
	p           persistence.Persistence
	agent       AgentAPI
	settings    settings.Provider
	policy      Policy
	connections ConnectionLookup
	endorserDID string
}

func NewManager(p persistence.Persistence, agent AgentAPI, settings settings.Provider, policy Policy, connections ConnectionLookup, endorserDID string) *Manager {
	return &Manager{
		p:           p,
		agent:       agent,
		settings:    settings,
		policy:      policy,
		connections: connections,
		endorserDID: endorserDID,
	}
}

// Store persists a newly received endorsement request. Inserts only - a
// replayed webhook for an already stored transaction is a conflict the
// caller can choose to swallow.
func (m *Manager) Store(ctx context.Context, payload *endapi.TransactionPayload) (*endapi.EndorseTransaction, error) {
	if payload.TransactionID == "" {
		return nil, i18n.NewError(ctx, msgs.MsgTransactionMissingID)
	}

	row := &transactionRow{
		TransactionID:  payload.TransactionID,
		ConnectionID:   payload.ConnectionID,
		State:          string(payload.State),
		AuthorGoalCode: payload.AuthorGoalCode,
		EndorserDID:    m.endorserDID,
	}
	if row.State == "" {
		row.State = string(endapi.TxnStateRequestReceived)
	}
	if row.AuthorGoalCode == "" && len(payload.SignatureRequest) > 0 {
		row.AuthorGoalCode = payload.SignatureRequest[0].AuthorGoalCode
	}
	if payload.Transaction != nil {
		row.AuthorDID = payload.Transaction.Identifier
		row.TransactionType = string(payload.Transaction.Type)
		b, err := json.Marshal(payload.Transaction)
		if err != nil {
			return nil, err
		}
		row.Transaction = string(b)
	}
	if payload.TransactionRequest != nil {
		b, err := json.Marshal(payload.TransactionRequest)
		if err != nil {
			return nil, err
		}
		row.TransactionRequest = string(b)
	}

	err := m.p.DB().WithContext(ctx).Create(row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, i18n.NewError(ctx, msgs.MsgTransactionExists, payload.TransactionID)
		}
		return nil, err
	}
	return row.toAPI()
}

func (m *Manager) Get(ctx context.Context, txnID string) (*endapi.EndorseTransaction, error) {
	var row transactionRow
	err := m.p.DB().WithContext(ctx).First(&row, "transaction_id = ?", txnID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, i18n.NewError(ctx, msgs.MsgTransactionNotFound, txnID)
		}
		return nil, err
	}
	return row.toAPI()
}

func (m *Manager) List(ctx context.Context, filter ListFilter) ([]*endapi.EndorseTransaction, error) {
	q := m.p.DB().WithContext(ctx).Order("created_at")
	if filter.State != "" {
		q = q.Where("state = ?", string(filter.State))
	}
	if filter.ConnectionID != "" {
		q = q.Where("connection_id = ?", filter.ConnectionID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var rows []*transactionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	txns := make([]*endapi.EndorseTransaction, len(rows))
	for i, row := range rows {
		txn, err := row.toAPI()
		if err != nil {
			return nil, err
		}
		txns[i] = txn
	}
	return txns, nil
}

// Endorse signs the transaction via the agent and persists the state the
// agent reports. Re-endorsing an already endorsed transaction is a no-op.
func (m *Manager) Endorse(ctx context.Context, txnID string) (*endapi.EndorseTransaction, error) {
	return m.decide(ctx, txnID, endapi.TxnStateTransactionEndorsed, m.agent.EndorseTransaction)
}

// Reject refuses the transaction via the agent and persists the state the
// agent reports. Re-rejecting an already refused transaction is a no-op.
func (m *Manager) Reject(ctx context.Context, txnID string) (*endapi.EndorseTransaction, error) {
	return m.decide(ctx, txnID, endapi.TxnStateTransactionRefused, m.agent.RefuseTransaction)
}

func (m *Manager) decide(ctx context.Context, txnID string, target endapi.TxnState, op func(ctx context.Context, txnID string) (endapi.TxnState, error)) (*endapi.EndorseTransaction, error) {
	txn, err := m.Get(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if txn.State == target {
		log.L(ctx).Debugf("Transaction %s already in state %s", txnID, target)
		return txn, nil
	}
	if txn.State != endapi.TxnStateRequestReceived {
		return nil, i18n.NewError(ctx, msgs.MsgTransactionWrongState, txnID, txn.State)
	}
	newState, err := op(ctx, txnID)
	if err != nil {
		return nil, err
	}
	if newState == "" {
		newState = target
	}
	if err := m.UpdateState(ctx, txnID, newState); err != nil {
		return nil, err
	}
	return m.Get(ctx, txnID)
}

// UpdateState records a state reported by the agent.
func (m *Manager) UpdateState(ctx context.Context, txnID string, state endapi.TxnState) error {
	res := m.p.DB().WithContext(ctx).
		Model(&transactionRow{}).
		Where("transaction_id = ?", txnID).
		Update("state", string(state))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return i18n.NewError(ctx, msgs.MsgTransactionNotFound, txnID)
	}
	return nil
}

// AutoDecide applies the decision order to a newly received transaction:
// the connection's auto_reject override wins, then connection or global
// auto-endorsement gated by the transaction type list, then the allow list,
// then the reject-by-default switch. Anything left stays request_received
// for a manual decision.
func (m *Manager) AutoDecide(ctx context.Context, txn *endapi.EndorseTransaction) (*endapi.EndorseTransaction, error) {
	if txn.State != endapi.TxnStateRequestReceived {
		log.L(ctx).Debugf("Transaction %s in state %s needs no decision", txn.TransactionID, txn.State)
		return txn, nil
	}

	conn, err := m.connections.Get(ctx, txn.ConnectionID)
	if err != nil {
		return nil, err
	}

	// Connection-level overrides only apply once the author is active -
	// a pending author's flags are not yet in force
	authorActive := conn.AuthorStatus == endapi.AuthorStatusActive

	if authorActive && conn.EndorseStatus == endapi.EndorseStatusAutoReject {
		log.L(ctx).Infof("Rejecting transaction %s: connection %s set to auto_reject", txn.TransactionID, conn.ConnectionID)
		return m.Reject(ctx, txn.TransactionID)
	}

	autoEndorse, err := m.settings.GetBool(ctx, settings.AutoEndorseRequests)
	if err != nil {
		return nil, err
	}
	if (authorActive && conn.EndorseStatus == endapi.EndorseStatusAutoAccept) || autoEndorse {
		eligible, err := m.txnTypeEligible(ctx, txn.TransactionType)
		if err != nil {
			return nil, err
		}
		if eligible {
			log.L(ctx).Infof("Endorsing transaction %s: auto-endorsement is on", txn.TransactionID)
			return m.Endorse(ctx, txn.TransactionID)
		}
		log.L(ctx).Infof("Transaction %s type %s not in the auto-endorse type list", txn.TransactionID, txn.TransactionType)
	}

	endorsable, err := m.policy.IsEndorsable(ctx, txn)
	if err != nil {
		return nil, err
	}
	if endorsable {
		log.L(ctx).Infof("Endorsing transaction %s: covered by the allow list", txn.TransactionID)
		return m.Endorse(ctx, txn.TransactionID)
	}

	rejectByDefault, err := m.settings.GetBool(ctx, settings.RejectByDefault)
	if err != nil {
		return nil, err
	}
	if rejectByDefault {
		log.L(ctx).Infof("Rejecting transaction %s: reject-by-default is on", txn.TransactionID)
		return m.Reject(ctx, txn.TransactionID)
	}

	log.L(ctx).Infof("Transaction %s left pending for a manual decision", txn.TransactionID)
	return txn, nil
}

func (m *Manager) txnTypeEligible(ctx context.Context, txnType endapi.TxnType) (bool, error) {
	types, err := m.settings.GetTxnTypes(ctx)
	if err != nil {
		return false, err
	}
	if len(types) == 0 {
		return true, nil
	}
	for _, tt := range types {
		if tt == txnType {
			return true, nil
		}
	}
	return false, nil
}

// ReevaluatePending re-runs the allow list over every transaction still
// awaiting a decision, endorsing the ones now covered. Called when the allow
// list changes. Decided transactions are never revisited, and a failure on
// one transaction does not stop the sweep.
func (m *Manager) ReevaluatePending(ctx context.Context) {
	pending, err := m.List(ctx, ListFilter{State: endapi.TxnStateRequestReceived})
	if err != nil {
		log.L(ctx).Errorf("Failed to list pending transactions for re-evaluation: %s", err)
		return
	}
	for _, txn := range pending {
		endorsable, err := m.policy.IsEndorsable(ctx, txn)
		if err != nil {
			log.L(ctx).Warnf("Skipping re-evaluation of transaction %s: %s", txn.TransactionID, err)
			continue
		}
		if !endorsable {
			continue
		}
		if _, err := m.Endorse(ctx, txn.TransactionID); err != nil {
			log.L(ctx).Errorf("Failed to endorse transaction %s on re-evaluation: %s", txn.TransactionID, err)
		}
	}
}
