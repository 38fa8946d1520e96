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

import "time"

// AuthorStatus tracks whether an author connection has been fully
// provisioned with endorser metadata.
type AuthorStatus string

const (
	AuthorStatusPending AuthorStatus = "pending"
	AuthorStatusActive  AuthorStatus = "active"
)

// EndorseStatus is the per-connection endorsement policy override.
type EndorseStatus string

const (
	EndorseStatusManual     EndorseStatus = "manual"
	EndorseStatusAutoReject EndorseStatus = "auto_reject"
	EndorseStatusAutoAccept EndorseStatus = "auto_endorse"
)

const ProtocolDIDExchange = "didexchange/1.0"

// ConnectionPayload is the webhook payload shape for the connections topic.
type ConnectionPayload struct {
	ConnectionID       string `json:"connection_id"`
	State              string `json:"state,omitempty"`
	Alias              string `json:"alias,omitempty"`
	TheirLabel         string `json:"their_label,omitempty"`
	TheirPublicDID     string `json:"their_public_did,omitempty"`
	ConnectionProtocol string `json:"connection_protocol,omitempty"`
}

// Connection is the domain record for one author agent connection.
type Connection struct {
	ConnectionID  string        `json:"connection_id"`
	Alias         string        `json:"alias,omitempty"`
	TheirLabel    string        `json:"their_label,omitempty"`
	PublicDID     string        `json:"public_did,omitempty"`
	State         string        `json:"state,omitempty"`
	Protocol      string        `json:"connection_protocol,omitempty"`
	AuthorStatus  AuthorStatus  `json:"author_status"`
	EndorseStatus EndorseStatus `json:"endorse_status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
