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

package identifiers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWebVHDID(t *testing.T) {
	ctx := context.Background()

	parsed, err := ParseWebVHDID(ctx, "did:webvh:S1:ledger.example.com:demo:issuer-01")
	require.NoError(t, err)
	assert.Equal(t, "S1", parsed.SCID)
	assert.Equal(t, "ledger.example.com", parsed.Domain)
	assert.Equal(t, "demo", parsed.Namespace)
	assert.Equal(t, "issuer-01", parsed.Identifier)

	_, err = ParseWebVHDID(ctx, "did:webvh:S1:ledger.example.com:demo")
	assert.Regexp(t, "AE000300", err)

	_, err = ParseWebVHDID(ctx, "nid:webvh:S1:ledger.example.com:demo:issuer-01")
	assert.Regexp(t, "AE000300", err)
}

func TestParseCredDefID(t *testing.T) {
	ctx := context.Background()

	parsed, err := ParseCredDefID(ctx, "V4SGRU86Z58d6TV7PBUe6f:3:CL:42:default")
	require.NoError(t, err)
	assert.Equal(t, "V4SGRU86Z58d6TV7PBUe6f", parsed.DID)
	assert.Equal(t, 42, parsed.SchemaSeqNo)
	assert.Equal(t, "default", parsed.Tag)

	_, err = ParseCredDefID(ctx, "V4SGRU86Z58d6TV7PBUe6f:3:CL:42")
	assert.Regexp(t, "AE000301", err)

	_, err = ParseCredDefID(ctx, "V4SGRU86Z58d6TV7PBUe6f:3:CL:notanumber:default")
	assert.Regexp(t, "AE000301", err)
}

func TestParseRevRegDefID(t *testing.T) {
	ctx := context.Background()

	parsed, err := ParseRevRegDefID(ctx, "V4SGRU86Z58d6TV7PBUe6f:4:V4SGRU86Z58d6TV7PBUe6f:3:CL:42:tag1:CL_ACCUM:r0")
	require.NoError(t, err)
	assert.Equal(t, "V4SGRU86Z58d6TV7PBUe6f", parsed.DID)
	assert.Equal(t, 42, parsed.SchemaSeqNo)
	assert.Equal(t, "tag1", parsed.Tag)

	_, err = ParseRevRegDefID(ctx, "V4SGRU86Z58d6TV7PBUe6f:4:CL_ACCUM:r0")
	assert.Regexp(t, "AE000302", err)

	_, err = ParseRevRegDefID(ctx, "a:b:c:d:e:notanumber:tag")
	assert.Regexp(t, "AE000302", err)
}

func TestParseSchemaID(t *testing.T) {
	ctx := context.Background()

	parsed, err := ParseSchemaID(ctx, "V4SGRU86Z58d6TV7PBUe6f:2:club-membership:1.0")
	require.NoError(t, err)
	assert.Equal(t, "V4SGRU86Z58d6TV7PBUe6f", parsed.DID)
	assert.Equal(t, "club-membership", parsed.Name)
	assert.Equal(t, "1.0", parsed.Version)

	_, err = ParseSchemaID(ctx, "V4SGRU86Z58d6TV7PBUe6f:2:club-membership")
	assert.Regexp(t, "AE000303", err)
}

func TestResourceDID(t *testing.T) {
	ctx := context.Background()

	did, err := ResourceDID(ctx, "did:webvh:S1:ledger.example.com:demo:issuer-01/resources/abc123")
	require.NoError(t, err)
	assert.Equal(t, "did:webvh:S1:ledger.example.com:demo:issuer-01", did)

	_, err = ResourceDID(ctx, "no-slash-here")
	assert.Regexp(t, "AE000304", err)

	_, err = ResourceDID(ctx, "/leading-slash")
	assert.Regexp(t, "AE000304", err)
}
