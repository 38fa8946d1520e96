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
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAndParseYAMLFile(t *testing.T) {
	configFile := path.Join(t.TempDir(), "endorser.yaml")
	err := os.WriteFile(configFile, []byte(`
log:
  level: debug
db:
  type: sqlite
  sqlite:
    dsn: ":memory:"
agentApi:
  url: http://localhost:8031
  apiKey: test-admin-key
webhookServer:
  port: 8032
  apiKey: test-webhook-key
endorser:
  publicName: Test Endorser
  autoEndorseRequests: true
  autoEndorseTxnTypes: "101,102"
`), 0644)
	require.NoError(t, err)

	var conf EndorserConfig
	err = ReadAndParseYAMLFile(context.Background(), configFile, &conf)
	require.NoError(t, err)
	assert.Equal(t, "debug", *conf.Log.Level)
	assert.Equal(t, "sqlite", conf.DB.Type)
	assert.Equal(t, ":memory:", conf.DB.SQLite.DSN)
	assert.Equal(t, "http://localhost:8031", conf.AgentAPI.URL)
	assert.Equal(t, 8032, *conf.WebhookServer.Port)
	assert.Equal(t, "Test Endorser", *conf.Endorser.PublicName)
	assert.True(t, *conf.Endorser.AutoEndorseRequests)
	assert.Equal(t, "101,102", *conf.Endorser.AutoEndorseTxnTypes)
}

func TestReadAndParseYAMLFileMissing(t *testing.T) {
	var conf EndorserConfig
	err := ReadAndParseYAMLFile(context.Background(), path.Join(t.TempDir(), "nope.yaml"), &conf)
	assert.Regexp(t, "AE000000", err)
}

func TestReadAndParseYAMLFileBadYAML(t *testing.T) {
	configFile := path.Join(t.TempDir(), "endorser.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("{{{ not yaml"), 0644))

	var conf EndorserConfig
	err := ReadAndParseYAMLFile(context.Background(), configFile, &conf)
	assert.Regexp(t, "AE000002", err)
}
