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
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// TxnState is the lifecycle state of an endorsement transaction, as reported
// by the agent. The state machine is one-directional:
// request_received -> (transaction_endorsed | transaction_refused) -> transaction_acked
type TxnState string

const (
	TxnStateRequestReceived     TxnState = "request_received"
	TxnStateTransactionEndorsed TxnState = "transaction_endorsed"
	TxnStateTransactionRefused  TxnState = "transaction_refused"
	TxnStateTransactionAcked    TxnState = "transaction_acked"
)

// TxnType is the ledger transaction type code embedded in the signed payload.
type TxnType string

const (
	TxnTypeDID           TxnType = "1"   // NYM
	TxnTypeAttrib        TxnType = "100" // ATTRIB
	TxnTypeSchema        TxnType = "101" // SCHEMA
	TxnTypeCredDef       TxnType = "102" // CLAIM_DEF
	TxnTypeRevocRegistry TxnType = "113" // REVOC_REG_DEF
	TxnTypeRevocEntry    TxnType = "114" // REVOC_REG_ENTRY
)

// KnownTxnTypes is the full set of codes accepted for the auto-endorse
// transaction type allow-list setting.
var KnownTxnTypes = []TxnType{
	TxnTypeDID,
	TxnTypeAttrib,
	TxnTypeSchema,
	TxnTypeCredDef,
	TxnTypeRevocRegistry,
	TxnTypeRevocEntry,
}

// The ledger writes the type as a string, but some agent builds emit a bare
// number - accept both.
func (tt *TxnType) UnmarshalJSON(b []byte) error {
	var iVal any
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	if err := d.Decode(&iVal); err != nil {
		return err
	}
	switch v := iVal.(type) {
	case json.Number:
		*tt = TxnType(v.String())
	case string:
		*tt = TxnType(v)
	case nil:
		*tt = ""
	default:
		return json.Unmarshal(b, (*string)(tt))
	}
	return nil
}

// GoalCodeRegisterPublicDID is emitted by authors registering their first
// public DID, before they have one assigned.
const GoalCodeRegisterPublicDID = "aries.transaction.register_public_did"

// SeqNo tolerates both string and number encodings of a schema sequence number.
type SeqNo int

func (s *SeqNo) UnmarshalJSON(b []byte) error {
	var iVal any
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	if err := d.Decode(&iVal); err != nil {
		return err
	}
	switch v := iVal.(type) {
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return err
		}
		*s = SeqNo(i)
	case string:
		i, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*s = SeqNo(i)
	case nil:
		*s = 0
	}
	return nil
}

// SchemaData is the "data" section of a SCHEMA ledger transaction.
type SchemaData struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// TransactionBody is the decoded ledger transaction carried in the
// endorsement request. Fields are operation-specific; absent fields are
// left at their zero values.
type TransactionBody struct {
	Type          TxnType     `json:"type,omitempty"`
	Identifier    string      `json:"identifier,omitempty"` // DID of the transaction author
	Dest          string      `json:"dest,omitempty"`       // target DID for NYM/ATTRIB
	Data          *SchemaData `json:"data,omitempty"`
	Ref           SeqNo       `json:"ref,omitempty"` // schema sequence number for CLAIM_DEF
	Tag           string      `json:"tag,omitempty"`
	CredDefID     string      `json:"credDefId,omitempty"`
	RevocRegDefID string      `json:"revocRegDefId,omitempty"`
}

type SignatureRequest struct {
	AuthorGoalCode string `json:"author_goal_code,omitempty"`
}

// TransactionPayload is the webhook payload shape for the
// endorse_transaction topic.
type TransactionPayload struct {
	TransactionID      string             `json:"transaction_id"`
	ConnectionID       string             `json:"connection_id,omitempty"`
	State              TxnState           `json:"state,omitempty"`
	Transaction        *TransactionBody   `json:"transaction,omitempty"`
	TransactionRequest map[string]any     `json:"transaction_request,omitempty"`
	SignatureRequest   []SignatureRequest `json:"signature_request,omitempty"`
	AuthorGoalCode     string             `json:"author_goal_code,omitempty"`
}

// EndorseTransaction is the domain record for one ledger transaction
// awaiting an endorsement decision.
type EndorseTransaction struct {
	TransactionID      string           `json:"transaction_id"`
	ConnectionID       string           `json:"connection_id,omitempty"`
	State              TxnState         `json:"state"`
	AuthorDID          string           `json:"author_did,omitempty"`
	AuthorGoalCode     string           `json:"author_goal_code,omitempty"`
	EndorserDID        string           `json:"endorser_did,omitempty"`
	TransactionType    TxnType          `json:"transaction_type,omitempty"`
	Transaction        *TransactionBody `json:"transaction,omitempty"`
	TransactionRequest map[string]any   `json:"transaction_request,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}
