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

// Package identifiers decomposes the compound identifiers used on Indy
// ledgers and in did:webvh records into their constituent parts.
package identifiers

import (
	"context"
	"strconv"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/msgs"
)

// WebVHDID is the decomposition of a did:webvh DID of the form
// did:webvh:{scid}:{domain}:{namespace}:{identifier}.
type WebVHDID struct {
	SCID       string
	Domain     string
	Namespace  string
	Identifier string
}

// CredDefID is the decomposition of a credential definition identifier of
// the form {did}:3:CL:{schema_seq_no}:{tag}.
type CredDefID struct {
	DID         string
	SchemaSeqNo int
	Tag         string
}

// RevRegDefID is the decomposition of a revocation registry definition
// identifier of the form {did}:4:{cred_def_id}:CL_ACCUM:{tag}, addressed by
// its colon-separated positions.
type RevRegDefID struct {
	DID         string
	SchemaSeqNo int
	Tag         string
}

// SchemaID is the decomposition of a schema identifier of the form
// {did}:2:{name}:{version}.
type SchemaID struct {
	DID     string
	Name    string
	Version string
}

func ParseWebVHDID(ctx context.Context, did string) (*WebVHDID, error) {
	parts := strings.Split(did, ":")
	if len(parts) < 6 || parts[0] != "did" {
		return nil, i18n.NewError(ctx, msgs.MsgInvalidWebVHDID, did)
	}
	return &WebVHDID{
		SCID:       parts[2],
		Domain:     parts[3],
		Namespace:  parts[4],
		Identifier: parts[5],
	}, nil
}

func ParseCredDefID(ctx context.Context, id string) (*CredDefID, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 5 {
		return nil, i18n.NewError(ctx, msgs.MsgInvalidCredDefID, id)
	}
	seqNo, err := strconv.Atoi(parts[3])
	if err != nil {
		return nil, i18n.NewError(ctx, msgs.MsgInvalidCredDefID, id)
	}
	return &CredDefID{
		DID:         parts[0],
		SchemaSeqNo: seqNo,
		Tag:         parts[4],
	}, nil
}

func ParseRevRegDefID(ctx context.Context, id string) (*RevRegDefID, error) {
	parts := strings.Split(id, ":")
	if len(parts) < 7 {
		return nil, i18n.NewError(ctx, msgs.MsgInvalidRevRegID, id)
	}
	seqNo, err := strconv.Atoi(parts[5])
	if err != nil {
		return nil, i18n.NewError(ctx, msgs.MsgInvalidRevRegID, id)
	}
	return &RevRegDefID{
		DID:         parts[0],
		SchemaSeqNo: seqNo,
		Tag:         parts[6],
	}, nil
}

func ParseSchemaID(ctx context.Context, id string) (*SchemaID, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 4 {
		return nil, i18n.NewError(ctx, msgs.MsgInvalidSchemaID, id)
	}
	return &SchemaID{
		DID:     parts[0],
		Name:    parts[2],
		Version: parts[3],
	}, nil
}

// ResourceDID extracts the issuer DID from an attested resource identifier
// of the form {did}/path/to/resource.
func ResourceDID(ctx context.Context, id string) (string, error) {
	did, _, found := strings.Cut(id, "/")
	if !found || did == "" {
		return "", i18n.NewError(ctx, msgs.MsgInvalidResourceID, id)
	}
	return did, nil
}
