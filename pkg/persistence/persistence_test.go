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

package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/openwallet-foundation/acapy-endorser-service/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistenceInvalidType(t *testing.T) {
	_, err := NewPersistence(context.Background(), &config.DBConfig{Type: "mongodb"})
	assert.Regexp(t, "AE000100", err)
}

func TestNewPersistenceMissingDSN(t *testing.T) {
	_, err := NewPersistence(context.Background(), &config.DBConfig{Type: TypeSQLite})
	assert.Regexp(t, "AE000101", err)
}

func TestUnitTestPersistenceMigrates(t *testing.T) {
	ctx := context.Background()
	p, done, err := NewUnitTestPersistence(ctx)
	require.NoError(t, err)
	defer done()

	// The migrations created the tables
	var count int64
	err = p.DB().WithContext(ctx).Table("endorser_configurations").Count(&count).Error
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTransactionPostCommitAndFinalizer(t *testing.T) {
	ctx := context.Background()
	p, done, err := NewUnitTestPersistence(ctx)
	require.NoError(t, err)
	defer done()

	var postCommitted, finalized bool
	var finalizedErr error
	err = p.Transaction(ctx, func(ctx context.Context, tx DBTX) error {
		if err := tx.DB().Exec("INSERT INTO allowed_public_dids (registered_did) VALUES ('D1')").Error; err != nil {
			return err
		}
		tx.AddPostCommit(func(ctx context.Context) { postCommitted = true })
		tx.AddFinalizer(func(ctx context.Context, err error) { finalized = true; finalizedErr = err })
		return nil
	})
	require.NoError(t, err)
	assert.True(t, postCommitted)
	assert.True(t, finalized)
	assert.NoError(t, finalizedErr)

	var count int64
	err = p.DB().Table("allowed_public_dids").Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTransactionRollbackSkipsPostCommit(t *testing.T) {
	ctx := context.Background()
	p, done, err := NewUnitTestPersistence(ctx)
	require.NoError(t, err)
	defer done()

	var postCommitted bool
	var finalizedErr error
	err = p.Transaction(ctx, func(ctx context.Context, tx DBTX) error {
		if err := tx.DB().Exec("INSERT INTO allowed_public_dids (registered_did) VALUES ('D1')").Error; err != nil {
			return err
		}
		tx.AddPostCommit(func(ctx context.Context) { postCommitted = true })
		tx.AddFinalizer(func(ctx context.Context, err error) { finalizedErr = err })
		return fmt.Errorf("pop")
	})
	assert.Regexp(t, "pop", err)
	assert.False(t, postCommitted)
	assert.Regexp(t, "pop", finalizedErr)

	// The insert rolled back
	var count int64
	require.NoError(t, p.DB().Table("allowed_public_dids").Count(&count).Error)
	assert.Zero(t, count)
}
