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

package settings

import (
	"context"
	"testing"

	"github.com/openwallet-foundation/acapy-endorser-service/pkg/config"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/confutil"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/endapi"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, conf *config.PolicyDefaults) Provider {
	ctx := context.Background()
	p, done, err := persistence.NewUnitTestPersistence(ctx)
	require.NoError(t, err)
	t.Cleanup(done)
	if conf == nil {
		conf = &config.PolicyDefaults{}
	}
	return NewProvider(p, conf)
}

func TestIsTrue(t *testing.T) {
	for _, v := range []string{"true", "TRUE", "1", "t", "y", "Yes", "yeah", "yup", "certainly", "uh-huh"} {
		assert.True(t, IsTrue(v), v)
	}
	for _, v := range []string{"false", "0", "no", "", "nope"} {
		assert.False(t, IsTrue(v), v)
	}
}

func TestResolutionOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestProvider(t, &config.PolicyDefaults{
		AutoEndorseRequests: confutil.P(true),
	})

	// Configured default
	v, err := s.Get(ctx, AutoEndorseRequests)
	require.NoError(t, err)
	assert.Equal(t, "true", v)

	// Environment shadows the default
	t.Setenv(AutoEndorseRequests, "false")
	b, err := s.GetBool(ctx, AutoEndorseRequests)
	require.NoError(t, err)
	assert.False(t, b)

	// Database shadows the environment
	updated, err := s.Update(ctx, AutoEndorseRequests, "yes")
	require.NoError(t, err)
	assert.Equal(t, SourceDatabase, updated.Source)
	b, err = s.GetBool(ctx, AutoEndorseRequests)
	require.NoError(t, err)
	assert.True(t, b)
}

func TestUpdateExistingRow(t *testing.T) {
	ctx := context.Background()
	s := newTestProvider(t, nil)

	_, err := s.Update(ctx, RejectByDefault, "true")
	require.NoError(t, err)
	_, err = s.Update(ctx, RejectByDefault, "false")
	require.NoError(t, err)

	b, err := s.GetBool(ctx, RejectByDefault)
	require.NoError(t, err)
	assert.False(t, b)
}

func TestUnknownSetting(t *testing.T) {
	ctx := context.Background()
	s := newTestProvider(t, nil)

	_, err := s.Get(ctx, "ENDORSER_NO_SUCH_SETTING")
	assert.Regexp(t, "AE000500", err)

	_, err = s.Update(ctx, "ENDORSER_NO_SUCH_SETTING", "x")
	assert.Regexp(t, "AE000500", err)
}

func TestTxnTypes(t *testing.T) {
	ctx := context.Background()
	s := newTestProvider(t, nil)

	types, err := s.GetTxnTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []endapi.TxnType{"1", "100", "101", "102", "113", "114"}, types)

	_, err = s.Update(ctx, AutoEndorseTxnTypes, "101, 102")
	require.NoError(t, err)
	types, err = s.GetTxnTypes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []endapi.TxnType{"101", "102"}, types)

	// Empty list means no restriction
	_, err = s.Update(ctx, AutoEndorseTxnTypes, "")
	require.NoError(t, err)
	types, err = s.GetTxnTypes(ctx)
	require.NoError(t, err)
	assert.Empty(t, types)

	_, err = s.Update(ctx, AutoEndorseTxnTypes, "101,999")
	assert.Regexp(t, "AE000501.*999", err)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := newTestProvider(t, nil)

	_, err := s.Update(ctx, AutoAcceptConnections, "true")
	require.NoError(t, err)

	values, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, values, 5)

	bySource := map[string]Source{}
	for _, v := range values {
		bySource[v.Name] = v.Source
	}
	assert.Equal(t, SourceDatabase, bySource[AutoAcceptConnections])
	assert.Equal(t, SourceEnvironment, bySource[RejectByDefault])
}
