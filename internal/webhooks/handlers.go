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

package webhooks

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/connections"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/endorsemgr"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/witnessmgr"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/endapi"
)

// Topics and states as the agent emits them.
const (
	TopicPing             = "ping"
	TopicConnections      = "connections"
	TopicEndorseTxn       = "endorse_transaction"
	TopicLogEntry         = "log-entry"
	TopicAttestedResource = "attested-resource"
)

// Service binds the webhook event stream to the managers.
type Service struct {
	dispatcher  *Dispatcher
	connections *connections.Manager
	endorse     *endorsemgr.Manager
	witness     *witnessmgr.Manager
}

func NewService(connections *connections.Manager, endorse *endorsemgr.Manager, witness *witnessmgr.Manager) *Service {
	s := &Service{
		dispatcher:  NewDispatcher(),
		connections: connections,
		endorse:     endorse,
		witness:     witness,
	}
	s.register()
	return s
}

func (s *Service) ProcessEvent(ctx context.Context, topic, state string, payload []byte) {
	s.dispatcher.ProcessEvent(ctx, topic, state, payload)
}

func (s *Service) register() {
	d := s.dispatcher

	d.RegisterHandler(TopicPing, "received", s.handlePing)

	for _, state := range []string{"request", "response", "active", "completed"} {
		d.RegisterHandler(TopicConnections, state, s.handleConnection)
	}
	d.RegisterStepper(TopicConnections, "request", s.stepConnectionRequest)
	d.RegisterStepper(TopicConnections, "completed", s.stepConnectionCompleted)
	d.RegisterStepper(TopicConnections, "active", s.stepConnectionCompleted)

	d.RegisterHandler(TopicEndorseTxn, string(endapi.TxnStateRequestReceived), s.handleEndorseRequest)
	d.RegisterStepper(TopicEndorseTxn, string(endapi.TxnStateRequestReceived), s.stepEndorseRequest)
	for _, state := range []endapi.TxnState{
		endapi.TxnStateTransactionEndorsed,
		endapi.TxnStateTransactionRefused,
		endapi.TxnStateTransactionAcked,
	} {
		d.RegisterHandler(TopicEndorseTxn, string(state), s.handleEndorseStateReport)
	}

	d.RegisterHandler(TopicLogEntry, string(endapi.WitnessStatePending), s.witnessHandler(endapi.RecordKindLogEntry))
	d.RegisterStepper(TopicLogEntry, string(endapi.WitnessStatePending), s.stepWitnessRequest)
	d.RegisterHandler(TopicAttestedResource, string(endapi.WitnessStatePending), s.witnessHandler(endapi.RecordKindAttestedResource))
	d.RegisterStepper(TopicAttestedResource, string(endapi.WitnessStatePending), s.stepWitnessRequest)
}

func (s *Service) handlePing(ctx context.Context, payload []byte) (any, error) {
	log.L(ctx).Debugf("Ping from agent")
	return nil, nil
}

func (s *Service) handleConnection(ctx context.Context, payload []byte) (any, error) {
	var connPayload endapi.ConnectionPayload
	if err := json.Unmarshal(payload, &connPayload); err != nil {
		return nil, err
	}
	return s.connections.StoreRequest(ctx, &connPayload)
}

func (s *Service) stepConnectionRequest(ctx context.Context, result any) error {
	conn := result.(*endapi.Connection)
	return s.connections.AcceptRequest(ctx, conn.ConnectionID)
}

func (s *Service) stepConnectionCompleted(ctx context.Context, result any) error {
	conn := result.(*endapi.Connection)
	if conn.AuthorStatus == endapi.AuthorStatusActive {
		return nil // provisioned on an earlier state report
	}
	return s.connections.Provision(ctx, conn.ConnectionID)
}

func (s *Service) handleEndorseRequest(ctx context.Context, payload []byte) (any, error) {
	var txnPayload endapi.TransactionPayload
	if err := json.Unmarshal(payload, &txnPayload); err != nil {
		return nil, err
	}
	txn, err := s.endorse.Store(ctx, &txnPayload)
	if err != nil {
		// Replayed deliveries are routine, not errors
		if strings.HasPrefix(err.Error(), "AE000601") {
			log.L(ctx).Infof("Transaction %s already stored, skipping replay", txnPayload.TransactionID)
			return nil, nil
		}
		return nil, err
	}
	return txn, nil
}

func (s *Service) stepEndorseRequest(ctx context.Context, result any) error {
	txn := result.(*endapi.EndorseTransaction)
	_, err := s.endorse.AutoDecide(ctx, txn)
	return err
}

// The agent reports back the decisions this service made (and any made
// manually through the agent), so the local state machine tracks them.
func (s *Service) handleEndorseStateReport(ctx context.Context, payload []byte) (any, error) {
	var txnPayload endapi.TransactionPayload
	if err := json.Unmarshal(payload, &txnPayload); err != nil {
		return nil, err
	}
	if err := s.endorse.UpdateState(ctx, txnPayload.TransactionID, txnPayload.State); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Service) witnessHandler(kind endapi.RecordKind) Handler {
	return func(ctx context.Context, payload []byte) (any, error) {
		var witnessPayload endapi.WitnessPayload
		if err := json.Unmarshal(payload, &witnessPayload); err != nil {
			return nil, err
		}
		req, err := s.witness.Store(ctx, kind, &witnessPayload)
		if err != nil {
			if strings.HasPrefix(err.Error(), "AE000606") {
				log.L(ctx).Infof("Witness request %s already stored, skipping replay", witnessPayload.RecordID)
				return nil, nil
			}
			return nil, err
		}
		return req, nil
	}
}

func (s *Service) stepWitnessRequest(ctx context.Context, result any) error {
	req := result.(*endapi.WitnessRequest)
	_, err := s.witness.AutoDecide(ctx, req)
	return err
}
