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
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/openwallet-foundation/acapy-endorser-service/internal/acapy"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/allowlist"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/connections"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/endorsemgr"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/policy"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/settings"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/witnessmgr"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/config"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/confutil"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/endapi"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgent stands in for every agent admin API surface the managers use.
type fakeAgent struct {
	calls []string
}

func (f *fakeAgent) GetPublicDID(ctx context.Context) (string, error) {
	f.calls = append(f.calls, "GetPublicDID")
	return "EndorserDID1", nil
}

func (f *fakeAgent) AcceptConnectionRequest(ctx context.Context, connectionID string) error {
	f.calls = append(f.calls, "AcceptConnectionRequest:"+connectionID)
	return nil
}

func (f *fakeAgent) SetEndorserRole(ctx context.Context, connectionID string) error {
	f.calls = append(f.calls, "SetEndorserRole:"+connectionID)
	return nil
}

func (f *fakeAgent) SetEndorserInfo(ctx context.Context, connectionID, endorserDID, endorserName string) error {
	f.calls = append(f.calls, "SetEndorserInfo:"+connectionID)
	return nil
}

func (f *fakeAgent) EndorseTransaction(ctx context.Context, txnID string) (endapi.TxnState, error) {
	f.calls = append(f.calls, "EndorseTransaction:"+txnID)
	return endapi.TxnStateTransactionEndorsed, nil
}

func (f *fakeAgent) RefuseTransaction(ctx context.Context, txnID string) (endapi.TxnState, error) {
	f.calls = append(f.calls, "RefuseTransaction:"+txnID)
	return endapi.TxnStateTransactionRefused, nil
}

func (f *fakeAgent) ApproveLogEntry(ctx context.Context, recordID string) error {
	f.calls = append(f.calls, "ApproveLogEntry:"+recordID)
	return nil
}

func (f *fakeAgent) RejectLogEntry(ctx context.Context, recordID string) error {
	f.calls = append(f.calls, "RejectLogEntry:"+recordID)
	return nil
}

func (f *fakeAgent) ApproveAttestedResource(ctx context.Context, recordID string) error {
	f.calls = append(f.calls, "ApproveAttestedResource:"+recordID)
	return nil
}

func (f *fakeAgent) RejectAttestedResource(ctx context.Context, recordID string) error {
	f.calls = append(f.calls, "RejectAttestedResource:"+recordID)
	return nil
}

func (f *fakeAgent) GetSchemaBySeqNo(ctx context.Context, seqNo int) (string, error) {
	return "", fmt.Errorf("pop")
}

func (f *fakeAgent) GetAnonCredsSchema(ctx context.Context, schemaID string) (*acapy.AnonCredsSchema, error) {
	return nil, fmt.Errorf("pop")
}

func (f *fakeAgent) GetAnonCredsCredDef(ctx context.Context, credDefID string) (*acapy.AnonCredsCredDef, error) {
	return nil, fmt.Errorf("pop")
}

type testService struct {
	*Service
	agent     *fakeAgent
	allowList allowlist.Store
	endorse   *endorsemgr.Manager
	conns     *connections.Manager
	witness   *witnessmgr.Manager
}

func newTestService(t *testing.T, conf *config.PolicyDefaults) *testService {
	ctx := context.Background()
	p, done, err := persistence.NewUnitTestPersistence(ctx)
	require.NoError(t, err)
	t.Cleanup(done)
	if conf == nil {
		conf = &config.PolicyDefaults{}
	}

	agent := &fakeAgent{}
	settingsProvider := settings.NewProvider(p, conf)
	allowList := allowlist.NewStore(p)
	evaluator := policy.NewEvaluator(allowList, agent)
	connMgr := connections.NewManager(p, agent, settingsProvider, "endorser")
	endorseMgr := endorsemgr.NewManager(p, agent, settingsProvider, evaluator, connMgr, "EndorserDID1")
	witnessMgr := witnessmgr.NewManager(p, agent, settingsProvider, evaluator)

	return &testService{
		Service:   NewService(connMgr, endorseMgr, witnessMgr),
		agent:     agent,
		allowList: allowList,
		endorse:   endorseMgr,
		conns:     connMgr,
		witness:   witnessMgr,
	}
}

func TestConnectionLifecycleEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, &config.PolicyDefaults{
		AutoAcceptConnections: confutil.P(true),
		AutoAcceptAuthors:     confutil.P(true),
	})

	s.ProcessEvent(ctx, TopicConnections, "request", []byte(`{"connection_id":"conn1","state":"request","alias":"author-1"}`))
	s.ProcessEvent(ctx, TopicConnections, "completed", []byte(`{"connection_id":"conn1","state":"completed"}`))

	assert.Equal(t, []string{
		"AcceptConnectionRequest:conn1",
		"SetEndorserRole:conn1",
		"GetPublicDID",
		"SetEndorserInfo:conn1",
	}, s.agent.calls)

	conn, err := s.conns.Get(ctx, "conn1")
	require.NoError(t, err)
	assert.Equal(t, endapi.AuthorStatusActive, conn.AuthorStatus)
}

func TestEndorseTransactionScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)

	s.ProcessEvent(ctx, TopicConnections, "request", []byte(`{"connection_id":"conn1","state":"request"}`))

	// Not allow-listed yet: stays pending
	payload := []byte(`{
		"transaction_id": "txn1",
		"connection_id": "conn1",
		"state": "request_received",
		"transaction": {"type": "101", "identifier": "AuthorDID1", "data": {"name": "club-membership", "version": "1.0"}}
	}`)
	s.ProcessEvent(ctx, TopicEndorseTxn, "request_received", payload)

	txn, err := s.endorse.Get(ctx, "txn1")
	require.NoError(t, err)
	assert.Equal(t, endapi.TxnStateRequestReceived, txn.State)

	// Allow-list the schema: the change listener is wired in main, so drive
	// the re-evaluation directly here
	_, err = s.allowList.AddSchema(ctx, &allowlist.Schema{AuthorDID: "AuthorDID1", SchemaName: "club-membership", Version: "1.0"})
	require.NoError(t, err)
	s.endorse.ReevaluatePending(ctx)

	txn, err = s.endorse.Get(ctx, "txn1")
	require.NoError(t, err)
	assert.Equal(t, endapi.TxnStateTransactionEndorsed, txn.State)

	// Replay of the same request is swallowed
	s.ProcessEvent(ctx, TopicEndorseTxn, "request_received", payload)

	// Ack reported by the agent
	s.ProcessEvent(ctx, TopicEndorseTxn, "transaction_acked", []byte(`{"transaction_id":"txn1","state":"transaction_acked"}`))
	txn, err = s.endorse.Get(ctx, "txn1")
	require.NoError(t, err)
	assert.Equal(t, endapi.TxnStateTransactionAcked, txn.State)
}

func TestLogEntryPendingScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)

	_, err := s.allowList.AddLogEntry(ctx, &allowlist.LogEntry{
		SCID:       "S1",
		Domain:     "ledger.example.com",
		Namespace:  "demo",
		Identifier: allowlist.Wildcard,
	})
	require.NoError(t, err)

	s.ProcessEvent(ctx, TopicLogEntry, "pending", []byte(`{
		"scid": "S1",
		"state": "pending",
		"record_id": "rec1",
		"record": {"state": {"id": "did:webvh:S1:ledger.example.com:demo:issuer-01"}}
	}`))

	req, err := s.witness.Get(ctx, "rec1")
	require.NoError(t, err)
	assert.Equal(t, endapi.WitnessStateWitnessed, req.State)
	assert.Equal(t, []string{"ApproveLogEntry:rec1"}, s.agent.calls)
}

func TestAttestedResourcePendingStaysPending(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)

	s.ProcessEvent(ctx, TopicAttestedResource, "pending", []byte(`{
		"state": "pending",
		"record_id": "rec2",
		"record": {
			"id": "did:webvh:S1:ledger.example.com:demo:issuer-01/resources/abc",
			"metadata": {"resourceType": "anonCredsSchema"},
			"content": {"issuerId": "did:webvh:S1:ledger.example.com:demo:issuer-01", "name": "club-membership", "version": "1.0"}
		}
	}`))

	req, err := s.witness.Get(ctx, "rec2")
	require.NoError(t, err)
	assert.Equal(t, endapi.WitnessStatePending, req.State)
	assert.Empty(t, s.agent.calls)
}

func TestMalformedPayloadContained(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)

	// Must not panic, and must not store anything
	s.ProcessEvent(ctx, TopicEndorseTxn, "request_received", []byte(`{"transaction_id": 42`))
	_, err := s.endorse.Get(ctx, "42")
	assert.Regexp(t, "AE000600", err)
}

func TestServerDeliveryAndAuth(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, nil)

	server, err := NewServer(ctx, &config.WebhookServerConfig{
		Address: confutil.P("127.0.0.1"),
		Port:    confutil.P(0),
		APIKey:  "hook-secret",
	}, s.Service)
	require.NoError(t, err)
	server.Start()
	t.Cleanup(server.Stop)

	url := fmt.Sprintf("http://%s/topic/connections/", server.Addr())
	body := `{"connection_id":"conn1","state":"request"}`

	// Missing key rejected
	res, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	// Valid key accepted and event processed
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("x-api-key", "hook-secret")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	conn, err := s.conns.Get(ctx, "conn1")
	require.NoError(t, err)
	assert.Equal(t, "request", conn.State)
}

func TestServerRequiresPort(t *testing.T) {
	s := newTestService(t, nil)
	_, err := NewServer(context.Background(), &config.WebhookServerConfig{}, s.Service)
	assert.Regexp(t, "AE000610", err)
}
