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

	"gorm.io/gorm"
)

type DBTX interface {
	// Access the gORM DB object for the transaction
	DB() *gorm.DB
	// Only called after a transaction is successfully committed - useful for triggering other actions that are conditional on new data
	AddPostCommit(func(ctx context.Context))
	// Called in all cases (including panic cases) AFTER the transaction completes, to release resources. An error indicates the transaction rolled back.
	AddFinalizer(func(ctx context.Context, err error))
}

type transaction struct {
	txCtx       context.Context
	gdb         *gorm.DB
	postCommits []func(ctx context.Context)
	finalizers  []func(ctx context.Context, err error)
}

func (t *transaction) DB() *gorm.DB {
	return t.gdb
}

func (t *transaction) AddPostCommit(fn func(ctx context.Context)) {
	t.postCommits = append(t.postCommits, fn)
}

func (t *transaction) AddFinalizer(fn func(ctx context.Context, err error)) {
	t.finalizers = append(t.finalizers, fn)
}
