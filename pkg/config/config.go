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

package config

import (
	"context"
	"os"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/msgs"

	"sigs.k8s.io/yaml" // handles JSON tags, so one set of tags covers YAML files too
)

// EndorserConfig is the root configuration for the endorser service.
type EndorserConfig struct {
	Log           LogConfig           `json:"log"`
	DB            DBConfig            `json:"db"`
	AgentAPI      AgentAPIConfig      `json:"agentApi"`
	WebhookServer WebhookServerConfig `json:"webhookServer"`
	Endorser      PolicyDefaults      `json:"endorser"`
}

type LogConfig struct {
	Level *string `json:"level"`
}

// AgentAPIConfig points at the admin API of the ACA-Py agent this service
// makes endorsement decisions for.
type AgentAPIConfig struct {
	URL            string  `json:"url"`
	APIKey         string  `json:"apiKey"`
	APIKeyHeader   *string `json:"apiKeyHeader"`
	RequestTimeout *string `json:"requestTimeout"`
}

// WebhookServerConfig is the inbound listener the agent posts webhook events
// to. The API key is a static shared secret validated on every delivery.
type WebhookServerConfig struct {
	Address         *string `json:"address"`
	Port            *int    `json:"port"`
	APIKey          string  `json:"apiKey"`
	APIKeyHeader    *string `json:"apiKeyHeader"`
	ShutdownTimeout *string `json:"shutdownTimeout"`
}

// PolicyDefaults are the environment-level defaults for the decision settings.
// Values persisted through the administrative update path shadow these.
type PolicyDefaults struct {
	PublicName            *string `json:"publicName"` // name advertised to authors in endorser info
	AutoAcceptConnections *bool   `json:"autoAcceptConnections"`
	AutoAcceptAuthors     *bool   `json:"autoAcceptAuthors"`
	AutoEndorseRequests   *bool   `json:"autoEndorseRequests"`
	AutoEndorseTxnTypes   *string `json:"autoEndorseTxnTypes"`
	RejectByDefault       *bool   `json:"rejectByDefault"`
}

func ReadAndParseYAMLFile(ctx context.Context, filePath string, config interface{}) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return i18n.NewError(ctx, msgs.MsgConfigFileMissing, filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return i18n.NewError(ctx, msgs.MsgConfigFileReadError, filePath, err.Error())
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return i18n.NewError(ctx, msgs.MsgConfigFileParseError, err.Error())
	}

	return nil
}
