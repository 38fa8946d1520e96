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
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockProvider(t *testing.T) (*provider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	gdb, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &provider{
		p:    &postgresProvider{},
		gdb:  gdb,
		db:   db,
		conf: &config.SQLDBConfig{},
	}, mock
}

func TestTransactionCommit(t *testing.T) {
	gp, mock := newMockProvider(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE things").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := gp.Transaction(context.Background(), func(ctx context.Context, tx DBTX) error {
		return tx.DB().Exec("UPDATE things SET v = 1").Error
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRollbackOnError(t *testing.T) {
	gp, mock := newMockProvider(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE things").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := gp.Transaction(context.Background(), func(ctx context.Context, tx DBTX) error {
		return tx.DB().Exec("UPDATE things SET v = 1").Error
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionPanicRecoversAndRethrows(t *testing.T) {
	gp, mock := newMockProvider(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	var finalizedErr error
	assert.Panics(t, func() {
		_ = gp.Transaction(context.Background(), func(ctx context.Context, tx DBTX) error {
			tx.AddFinalizer(func(ctx context.Context, err error) { finalizedErr = err })
			panic("pop")
		})
	})
	assert.Regexp(t, "AE000105.*pop", finalizedErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateMissingDirectory(t *testing.T) {
	gp, _ := newMockProvider(t)
	_, err := gp.getMigrate(context.Background())
	assert.Regexp(t, "AE000104", err)
}

func TestCloseSwallowsError(t *testing.T) {
	gp, _ := newMockProvider(t)
	gp.Close()
	gp.Close() // second close errors internally, logged only
}
