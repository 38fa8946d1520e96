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

// Package acapy is a thin typed client for the subset of the ACA-Py admin
// API the endorser service drives.
package acapy

import (
	"context"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"
	"github.com/hyperledger/firefly-common/pkg/ffresty"
	"github.com/hyperledger/firefly-common/pkg/fftypes"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/msgs"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/config"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/confutil"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/endapi"
)

type Client interface {
	// Wallet and ledger reads
	GetPublicDID(ctx context.Context) (string, error)
	GetSchemaBySeqNo(ctx context.Context, seqNo int) (string, error)
	GetAnonCredsSchema(ctx context.Context, schemaID string) (*AnonCredsSchema, error)
	GetAnonCredsCredDef(ctx context.Context, credDefID string) (*AnonCredsCredDef, error)
	GetAgentConfig(ctx context.Context) (map[string]any, error)

	// Endorsement decisions
	EndorseTransaction(ctx context.Context, txnID string) (endapi.TxnState, error)
	RefuseTransaction(ctx context.Context, txnID string) (endapi.TxnState, error)

	// Connection provisioning
	AcceptConnectionRequest(ctx context.Context, connectionID string) error
	SetEndorserRole(ctx context.Context, connectionID string) error
	SetEndorserInfo(ctx context.Context, connectionID, endorserDID, endorserName string) error

	// did:webvh witnessing decisions
	ApproveLogEntry(ctx context.Context, recordID string) error
	RejectLogEntry(ctx context.Context, recordID string) error
	ApproveAttestedResource(ctx context.Context, recordID string) error
	RejectAttestedResource(ctx context.Context, recordID string) error
}

// AnonCredsSchema is the subset of the agent's schema result the decision
// logic inspects.
type AnonCredsSchema struct {
	IssuerID string `json:"issuerId"`
	Name     string `json:"name"`
	Version  string `json:"version"`
}

// AnonCredsCredDef is the subset of the agent's credential definition result
// the decision logic inspects.
type AnonCredsCredDef struct {
	IssuerID string `json:"issuerId"`
	SchemaID string `json:"schemaId"`
	Tag      string `json:"tag"`
}

type client struct {
	http *resty.Client
}

func NewClient(ctx context.Context, conf *config.AgentAPIConfig) (Client, error) {
	u, err := url.Parse(conf.URL)
	if err != nil || conf.URL == "" || u.Scheme == "" || u.Host == "" {
		return nil, i18n.NewError(ctx, msgs.MsgAgentInvalidURL, conf.URL)
	}
	headers := map[string]any{}
	if conf.APIKey != "" {
		headers[confutil.StringNotEmpty(conf.APIKeyHeader, "x-api-key")] = conf.APIKey
	}
	restyConf := ffresty.Config{
		URL: conf.URL,
		HTTPConfig: ffresty.HTTPConfig{
			HTTPHeaders:        headers,
			HTTPRequestTimeout: fftypes.FFDuration(confutil.DurationMin(conf.RequestTimeout, 0, "30s")),
		},
	}
	return &client{http: ffresty.NewWithConfig(ctx, restyConf)}, nil
}

func (c *client) get(ctx context.Context, path string, result any) error {
	res, err := c.http.R().SetContext(ctx).SetResult(result).Get(path)
	return c.checkResponse(ctx, "GET", path, res, err)
}

func (c *client) post(ctx context.Context, path string, queryParams map[string]string, result any) error {
	r := c.http.R().SetContext(ctx).SetQueryParams(queryParams)
	if result != nil {
		r = r.SetResult(result)
	}
	res, err := r.Post(path)
	return c.checkResponse(ctx, "POST", path, res, err)
}

func (c *client) delete(ctx context.Context, path string, queryParams map[string]string) error {
	res, err := c.http.R().SetContext(ctx).SetQueryParams(queryParams).Delete(path)
	return c.checkResponse(ctx, "DELETE", path, res, err)
}

func (c *client) checkResponse(ctx context.Context, method, path string, res *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !res.IsSuccess() {
		return i18n.NewError(ctx, msgs.MsgAgentRequestFailed, method, path, res.StatusCode())
	}
	return nil
}

func (c *client) GetPublicDID(ctx context.Context) (string, error) {
	var didResult struct {
		Result *struct {
			DID string `json:"did"`
		} `json:"result"`
	}
	if err := c.get(ctx, "/wallet/did/public", &didResult); err != nil {
		return "", err
	}
	if didResult.Result == nil || didResult.Result.DID == "" {
		return "", i18n.NewError(ctx, msgs.MsgAgentMissingDIDInfo)
	}
	return didResult.Result.DID, nil
}

func (c *client) GetSchemaBySeqNo(ctx context.Context, seqNo int) (string, error) {
	var schemaResult struct {
		Schema *struct {
			ID string `json:"id"`
		} `json:"schema"`
	}
	path := fmt.Sprintf("/schemas/%d", seqNo)
	if err := c.get(ctx, path, &schemaResult); err != nil {
		return "", err
	}
	if schemaResult.Schema == nil || schemaResult.Schema.ID == "" {
		return "", i18n.NewError(ctx, msgs.MsgAgentBadResponse, "GET", path)
	}
	return schemaResult.Schema.ID, nil
}

func (c *client) GetAnonCredsSchema(ctx context.Context, schemaID string) (*AnonCredsSchema, error) {
	var schemaResult struct {
		Schema *AnonCredsSchema `json:"schema"`
	}
	path := "/anoncreds/schema/" + url.PathEscape(schemaID)
	if err := c.get(ctx, path, &schemaResult); err != nil {
		return nil, err
	}
	if schemaResult.Schema == nil {
		return nil, i18n.NewError(ctx, msgs.MsgAgentBadResponse, "GET", path)
	}
	return schemaResult.Schema, nil
}

func (c *client) GetAnonCredsCredDef(ctx context.Context, credDefID string) (*AnonCredsCredDef, error) {
	var credDefResult struct {
		CredentialDefinition *AnonCredsCredDef `json:"credential_definition"`
	}
	path := "/anoncreds/credential-definition/" + url.PathEscape(credDefID)
	if err := c.get(ctx, path, &credDefResult); err != nil {
		return nil, err
	}
	if credDefResult.CredentialDefinition == nil {
		return nil, i18n.NewError(ctx, msgs.MsgAgentBadResponse, "GET", path)
	}
	return credDefResult.CredentialDefinition, nil
}

func (c *client) GetAgentConfig(ctx context.Context) (map[string]any, error) {
	var configResult struct {
		Config map[string]any `json:"config"`
	}
	if err := c.get(ctx, "/status/config", &configResult); err != nil {
		return nil, err
	}
	return configResult.Config, nil
}

func (c *client) EndorseTransaction(ctx context.Context, txnID string) (endapi.TxnState, error) {
	return c.transactionOp(ctx, txnID, "endorse")
}

func (c *client) RefuseTransaction(ctx context.Context, txnID string) (endapi.TxnState, error) {
	return c.transactionOp(ctx, txnID, "refuse")
}

func (c *client) transactionOp(ctx context.Context, txnID, op string) (endapi.TxnState, error) {
	var txnResult struct {
		State endapi.TxnState `json:"state"`
	}
	path := "/transactions/" + url.PathEscape(txnID) + "/" + op
	if err := c.post(ctx, path, nil, &txnResult); err != nil {
		return "", err
	}
	return txnResult.State, nil
}

func (c *client) AcceptConnectionRequest(ctx context.Context, connectionID string) error {
	return c.post(ctx, "/didexchange/"+url.PathEscape(connectionID)+"/accept-request", nil, nil)
}

func (c *client) SetEndorserRole(ctx context.Context, connectionID string) error {
	return c.post(ctx, "/transactions/"+url.PathEscape(connectionID)+"/set-endorser-role", map[string]string{
		"transaction_my_job": "TRANSACTION_ENDORSER",
	}, nil)
}

func (c *client) SetEndorserInfo(ctx context.Context, connectionID, endorserDID, endorserName string) error {
	return c.post(ctx, "/transactions/"+url.PathEscape(connectionID)+"/set-endorser-info", map[string]string{
		"endorser_did":  endorserDID,
		"endorser_name": endorserName,
	}, nil)
}

func (c *client) ApproveLogEntry(ctx context.Context, recordID string) error {
	return c.post(ctx, "/did/webvh/witness/log-entries", map[string]string{"record_id": recordID}, nil)
}

func (c *client) RejectLogEntry(ctx context.Context, recordID string) error {
	return c.delete(ctx, "/did/webvh/witness/log-entries", map[string]string{"record_id": recordID})
}

func (c *client) ApproveAttestedResource(ctx context.Context, recordID string) error {
	return c.post(ctx, "/did/webvh/witness/attested-resources", map[string]string{"record_id": recordID}, nil)
}

func (c *client) RejectAttestedResource(ctx context.Context, recordID string) error {
	return c.delete(ctx, "/did/webvh/witness/attested-resources", map[string]string{"record_id": recordID})
}
