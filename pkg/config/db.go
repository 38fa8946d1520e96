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

type DBConfig struct {
	Type     string         `json:"type"`
	Postgres PostgresConfig `json:"postgres"`
	SQLite   SQLiteConfig   `json:"sqlite"`
}

type PostgresConfig struct {
	SQLDBConfig `json:",inline"`
}

type SQLiteConfig struct {
	SQLDBConfig `json:",inline"`
}

type SQLDBConfig struct {
	DSN             string  `json:"dsn"`
	MaxOpenConns    *int    `json:"maxOpenConns"`
	MaxIdleConns    *int    `json:"maxIdleConns"`
	ConnMaxIdleTime *string `json:"connMaxIdleTime"`
	ConnMaxLifetime *string `json:"connMaxLifetime"`
	AutoMigrate     *bool   `json:"autoMigrate"`
	MigrationsDir   string  `json:"migrationsDir"`
	DebugQueries    bool    `json:"debugQueries"`
	StatementCache  *bool   `json:"statementCache"`
}
