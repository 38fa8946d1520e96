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

// Package policy decides whether an individual ledger operation or
// witnessing request is covered by the allow list. It only answers
// yes or no per operation; the surrounding auto-decision order lives
// with the state machines.
package policy

import (
	"context"

	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/acapy"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/allowlist"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/identifiers"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/endapi"
)

// AgentResolver is the subset of the agent admin API the evaluator needs to
// chase compound identifiers back to their schema details.
type AgentResolver interface {
	GetSchemaBySeqNo(ctx context.Context, seqNo int) (string, error)
	GetAnonCredsSchema(ctx context.Context, schemaID string) (*acapy.AnonCredsSchema, error)
	GetAnonCredsCredDef(ctx context.Context, credDefID string) (*acapy.AnonCredsCredDef, error)
}

type Evaluator struct {
	allowList allowlist.Store
	agent     AgentResolver
}

func NewEvaluator(allowList allowlist.Store, agent AgentResolver) *Evaluator {
	return &Evaluator{allowList: allowList, agent: agent}
}

// IsEndorsable reports whether the transaction is pre-approved by the allow
// list. Unrecognized transaction types are conservatively not endorsable.
func (e *Evaluator) IsEndorsable(ctx context.Context, txn *endapi.EndorseTransaction) (bool, error) {
	isDIDRegistration := txn.AuthorGoalCode == endapi.GoalCodeRegisterPublicDID ||
		txn.TransactionType == endapi.TxnTypeDID ||
		txn.TransactionType == endapi.TxnTypeAttrib
	if isDIDRegistration {
		return e.isAllowedDIDRegistration(ctx, txn)
	}

	// Everything below needs the author's DID and the transaction body
	if txn.AuthorDID == "" || txn.Transaction == nil {
		return false, nil
	}

	switch txn.TransactionType {
	case endapi.TxnTypeSchema:
		if txn.Transaction.Data == nil {
			return false, nil
		}
		return e.allowList.MatchSchema(ctx, allowlist.SchemaCriteria{
			AuthorDID:  txn.AuthorDID,
			SchemaName: txn.Transaction.Data.Name,
			Version:    txn.Transaction.Data.Version,
		})

	case endapi.TxnTypeCredDef:
		schema, err := e.resolveSchemaBySeqNo(ctx, int(txn.Transaction.Ref))
		if err != nil {
			return false, err
		}
		return e.allowList.MatchCredDef(ctx, allowlist.CredDefCriteria{
			IssuerDID:  txn.AuthorDID,
			AuthorDID:  schema.DID,
			SchemaName: schema.Name,
			Version:    schema.Version,
			Tag:        txn.Transaction.Tag,
		})

	case endapi.TxnTypeRevocRegistry:
		credDef, err := identifiers.ParseCredDefID(ctx, txn.Transaction.CredDefID)
		if err != nil {
			return false, err
		}
		schema, err := e.resolveSchemaBySeqNo(ctx, credDef.SchemaSeqNo)
		if err != nil {
			return false, err
		}
		return e.allowList.MatchCredDef(ctx, allowlist.CredDefCriteria{
			IssuerDID:  credDef.DID,
			AuthorDID:  schema.DID,
			SchemaName: schema.Name,
			Version:    schema.Version,
			Tag:        credDef.Tag,
			RevRegDef:  true,
		})

	case endapi.TxnTypeRevocEntry:
		revReg, err := identifiers.ParseRevRegDefID(ctx, txn.Transaction.RevocRegDefID)
		if err != nil {
			return false, err
		}
		schema, err := e.resolveSchemaBySeqNo(ctx, revReg.SchemaSeqNo)
		if err != nil {
			return false, err
		}
		return e.allowList.MatchCredDef(ctx, allowlist.CredDefCriteria{
			IssuerDID:   revReg.DID,
			AuthorDID:   schema.DID,
			SchemaName:  schema.Name,
			Version:     schema.Version,
			Tag:         revReg.Tag,
			RevRegEntry: true,
		})

	default:
		log.L(ctx).Debugf("Transaction type '%s' not eligible for allow list evaluation", txn.TransactionType)
		return false, nil
	}
}

// DID registrations can arrive before the author has a public DID, signalled
// by the register_public_did goal code. The DID being registered is in the
// signature request when present, otherwise the NYM target.
func (e *Evaluator) isAllowedDIDRegistration(ctx context.Context, txn *endapi.EndorseTransaction) (bool, error) {
	did := ""
	if txn.AuthorGoalCode == endapi.GoalCodeRegisterPublicDID {
		if reqDID, ok := txn.TransactionRequest["did"].(string); ok {
			did = reqDID
		}
	}
	if did == "" && txn.Transaction != nil {
		did = txn.Transaction.Dest
	}
	if did == "" {
		return false, nil
	}
	return e.allowList.MatchPublicDID(ctx, did)
}

func (e *Evaluator) resolveSchemaBySeqNo(ctx context.Context, seqNo int) (*identifiers.SchemaID, error) {
	schemaID, err := e.agent.GetSchemaBySeqNo(ctx, seqNo)
	if err != nil {
		return nil, err
	}
	return identifiers.ParseSchemaID(ctx, schemaID)
}

// CanWitness reports whether the did:webvh witnessing request is
// pre-approved by the allow list.
func (e *Evaluator) CanWitness(ctx context.Context, kind endapi.RecordKind, record *endapi.WitnessRecord) (bool, error) {
	switch kind {
	case endapi.RecordKindLogEntry:
		if record.State == nil {
			return false, nil
		}
		did, err := identifiers.ParseWebVHDID(ctx, record.State.ID)
		if err != nil {
			return false, err
		}
		return e.allowList.MatchLogEntry(ctx, allowlist.LogEntryCriteria{
			SCID:       did.SCID,
			Domain:     did.Domain,
			Namespace:  did.Namespace,
			Identifier: did.Identifier,
		})

	case endapi.RecordKindAttestedResource:
		return e.canWitnessResource(ctx, record)

	default:
		return false, nil
	}
}

func (e *Evaluator) canWitnessResource(ctx context.Context, record *endapi.WitnessRecord) (bool, error) {
	if record.Metadata == nil || record.Content == nil {
		return false, nil
	}
	content := record.Content

	switch record.Metadata.ResourceType {
	case endapi.ResourceTypeSchema:
		return e.allowList.MatchSchema(ctx, allowlist.SchemaCriteria{
			AuthorDID:  content.IssuerID,
			SchemaName: content.Name,
			Version:    content.Version,
		})

	case endapi.ResourceTypeCredDef:
		schema, err := e.agent.GetAnonCredsSchema(ctx, content.SchemaID)
		if err != nil {
			return false, err
		}
		return e.allowList.MatchCredDef(ctx, allowlist.CredDefCriteria{
			IssuerDID:  content.IssuerID,
			AuthorDID:  schema.IssuerID,
			SchemaName: schema.Name,
			Version:    schema.Version,
			Tag:        content.Tag,
		})

	case endapi.ResourceTypeRevRegDef, endapi.ResourceTypeStatusList:
		credDef, err := e.agent.GetAnonCredsCredDef(ctx, content.CredDefID)
		if err != nil {
			return false, err
		}
		schema, err := e.agent.GetAnonCredsSchema(ctx, credDef.SchemaID)
		if err != nil {
			return false, err
		}
		return e.allowList.MatchCredDef(ctx, allowlist.CredDefCriteria{
			IssuerDID:  credDef.IssuerID,
			AuthorDID:  schema.IssuerID,
			SchemaName: schema.Name,
			Version:    schema.Version,
			Tag:        credDef.Tag,
			RevRegDef:  true,
		})

	default:
		log.L(ctx).Debugf("Resource type '%s' not eligible for allow list evaluation", record.Metadata.ResourceType)
		return false, nil
	}
}
