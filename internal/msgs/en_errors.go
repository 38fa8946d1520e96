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

package msgs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"golang.org/x/text/language"
)

const endorserPrefix = "AE00"

var registered sync.Once
var ffe = func(key, translation string, statusHint ...int) i18n.ErrorMessageKey {
	registered.Do(func() {
		i18n.RegisterPrefix(endorserPrefix, "ACA-Py Endorser Service")
	})
	if !strings.HasPrefix(key, endorserPrefix) {
		panic(fmt.Errorf("must have prefix '%s': %s", endorserPrefix, key))
	}
	return i18n.FFE(language.AmericanEnglish, key, translation, statusHint...)
}

var (
	// Config AE0000XX
	MsgConfigFileMissing    = ffe("AE000000", "Config file not found at path: %s")
	MsgConfigFileReadError  = ffe("AE000001", "Failed to read config file %s: %s")
	MsgConfigFileParseError = ffe("AE000002", "Failed to parse config file: %s")

	// Persistence AE0001XX
	MsgPersistenceInvalidType          = ffe("AE000100", "Invalid persistence type: %s")
	MsgPersistenceMissingDSN           = ffe("AE000101", "Missing DSN for database connection")
	MsgPersistenceInitFailed           = ffe("AE000102", "Database init failed")
	MsgPersistenceMigrationFailed      = ffe("AE000103", "Database migration failed")
	MsgPersistenceMissingMigrationDir  = ffe("AE000104", "Missing migration directory")
	MsgPersistenceErrorInDBTransaction = ffe("AE000105", "Error in database transaction: %s")

	// Agent control client AE0002XX
	MsgAgentInvalidURL     = ffe("AE000200", "Invalid agent admin API URL: '%s'")
	MsgAgentRequestFailed  = ffe("AE000201", "Agent admin API %s %s returned [%d]")
	MsgAgentBadResponse    = ffe("AE000202", "Agent admin API %s %s returned an unparsable response")
	MsgAgentMissingDIDInfo = ffe("AE000203", "Agent wallet returned no public DID")

	// Identifiers AE0003XX
	MsgInvalidWebVHDID   = ffe("AE000300", "Invalid did:webvh identifier '%s': expected did:<method>:<scid>:<domain>:<namespace>:<identifier>")
	MsgInvalidCredDefID  = ffe("AE000301", "Invalid credential definition identifier '%s'")
	MsgInvalidRevRegID   = ffe("AE000302", "Invalid revocation registry definition identifier '%s'")
	MsgInvalidSchemaID   = ffe("AE000303", "Invalid schema identifier '%s'")
	MsgInvalidResourceID = ffe("AE000304", "Invalid attested resource identifier '%s'")

	// Allow list AE0004XX
	MsgAllowListEntryExists   = ffe("AE000400", "Allow list entry already exists: %s", 409)
	MsgAllowListEntryNotFound = ffe("AE000401", "Allow list entry not found: %s", 404)

	// Settings AE0005XX
	MsgSettingUnknown        = ffe("AE000500", "Unknown configuration setting '%s'", 404)
	MsgSettingInvalidTxnType = ffe("AE000501", "'%s' is not a valid transaction type", 400)

	// Endorsement state machine AE0006XX
	MsgTransactionNotFound      = ffe("AE000600", "Transaction '%s' not found", 404)
	MsgTransactionExists        = ffe("AE000601", "Transaction '%s' already stored", 409)
	MsgTransactionMissingID     = ffe("AE000602", "Webhook payload missing transaction_id")
	MsgConnectionNotFound       = ffe("AE000603", "Connection '%s' not found", 404)
	MsgUnsupportedRecordKind    = ffe("AE000604", "Unsupported record kind '%s'")
	MsgWitnessRequestNotFound   = ffe("AE000605", "Witness request '%s' not found", 404)
	MsgWitnessRequestExists     = ffe("AE000606", "Witness request '%s' already stored", 409)
	MsgWitnessRequestMissingID  = ffe("AE000607", "Webhook payload missing record_id")
	MsgWitnessRecordMissingDID  = ffe("AE000608", "Witness record for '%s' carries no identifier to derive the DID from")
	MsgWebhookPayloadInvalid    = ffe("AE000609", "Invalid webhook payload: %s")
	MsgWebhookServerMissingPort = ffe("AE000610", "Webhook server port must be configured")
	MsgWebhookServerStartFail   = ffe("AE000611", "Webhook server failed to listen on %s")
	MsgInvalidEndorseStatus     = ffe("AE000612", "'%s' is not a valid endorse status", 400)
	MsgTransactionWrongState    = ffe("AE000613", "Transaction '%s' cannot be decided from state '%s'", 409)
	MsgWitnessWrongState        = ffe("AE000614", "Witness request '%s' cannot be decided from state '%s'", 409)
)
