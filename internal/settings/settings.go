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

// Package settings resolves the runtime-tunable policy switches. Values
// stored in the database shadow environment variables, which in turn shadow
// the configured defaults, so operators can flip behavior without a restart.
package settings

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/msgs"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/config"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/confutil"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/endapi"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/persistence"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	AutoAcceptConnections = "ENDORSER_AUTO_ACCEPT_CONNECTIONS"
	AutoAcceptAuthors     = "ENDORSER_AUTO_ACCEPT_AUTHORS"
	AutoEndorseRequests   = "ENDORSER_AUTO_ENDORSE_REQUESTS"
	AutoEndorseTxnTypes   = "ENDORSER_AUTO_ENDORSE_TXN_TYPES"
	RejectByDefault       = "ENDORSER_REJECT_BY_DEFAULT"
)

const DefaultAutoEndorseTxnTypes = "1,100,101,102,113,114"

// Source says where a resolved value came from. Database rows shadow the
// environment (which covers both env vars and configured defaults).
type Source string

const (
	SourceDatabase    Source = "Database"
	SourceEnvironment Source = "Environment"
)

type Value struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source Source `json:"source"`
}

type Provider interface {
	Get(ctx context.Context, name string) (string, error)
	GetBool(ctx context.Context, name string) (bool, error)
	GetTxnTypes(ctx context.Context) ([]endapi.TxnType, error)
	Update(ctx context.Context, name, value string) (*Value, error)
	List(ctx context.Context) ([]*Value, error)
}

// Truthy string forms accepted for the boolean switches.
var trueValues = []string{"true", "1", "t", "y", "yes", "yeah", "yup", "certainly", "uh-huh"}

func IsTrue(value string) bool {
	lower := strings.ToLower(value)
	for _, tv := range trueValues {
		if lower == tv {
			return true
		}
	}
	return false
}

type configRow struct {
	ConfigName  string    `gorm:"column:config_name;primaryKey"`
	ConfigValue string    `gorm:"column:config_value"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (configRow) TableName() string {
	return "endorser_configurations"
}

type provider struct {
	p        persistence.Persistence
	defaults map[string]string
}

func NewProvider(p persistence.Persistence, conf *config.PolicyDefaults) Provider {
	return &provider{
		p: p,
		defaults: map[string]string{
			AutoAcceptConnections: strconv.FormatBool(confutil.Bool(conf.AutoAcceptConnections, false)),
			AutoAcceptAuthors:     strconv.FormatBool(confutil.Bool(conf.AutoAcceptAuthors, false)),
			AutoEndorseRequests:   strconv.FormatBool(confutil.Bool(conf.AutoEndorseRequests, false)),
			AutoEndorseTxnTypes:   confutil.StringOrEmpty(conf.AutoEndorseTxnTypes, DefaultAutoEndorseTxnTypes),
			RejectByDefault:       strconv.FormatBool(confutil.Bool(conf.RejectByDefault, false)),
		},
	}
}

func (s *provider) resolve(ctx context.Context, name string) (*Value, error) {
	def, known := s.defaults[name]
	if !known {
		return nil, i18n.NewError(ctx, msgs.MsgSettingUnknown, name)
	}
	var row configRow
	err := s.p.DB().WithContext(ctx).First(&row, "config_name = ?", name).Error
	if err == nil {
		return &Value{Name: name, Value: row.ConfigValue, Source: SourceDatabase}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if envVal, ok := os.LookupEnv(name); ok {
		return &Value{Name: name, Value: envVal, Source: SourceEnvironment}, nil
	}
	return &Value{Name: name, Value: def, Source: SourceEnvironment}, nil
}

func (s *provider) Get(ctx context.Context, name string) (string, error) {
	v, err := s.resolve(ctx, name)
	if err != nil {
		return "", err
	}
	return v.Value, nil
}

func (s *provider) GetBool(ctx context.Context, name string) (bool, error) {
	v, err := s.Get(ctx, name)
	if err != nil {
		return false, err
	}
	return IsTrue(v), nil
}

// GetTxnTypes returns the transaction type codes eligible for auto
// endorsement. An empty list means no restriction.
func (s *provider) GetTxnTypes(ctx context.Context) ([]endapi.TxnType, error) {
	v, err := s.Get(ctx, AutoEndorseTxnTypes)
	if err != nil {
		return nil, err
	}
	return parseTxnTypes(v), nil
}

func parseTxnTypes(v string) []endapi.TxnType {
	types := []endapi.TxnType{}
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			types = append(types, endapi.TxnType(trimmed))
		}
	}
	return types
}

func (s *provider) Update(ctx context.Context, name, value string) (*Value, error) {
	if _, known := s.defaults[name]; !known {
		return nil, i18n.NewError(ctx, msgs.MsgSettingUnknown, name)
	}
	if name == AutoEndorseTxnTypes {
		for _, tt := range parseTxnTypes(value) {
			valid := false
			for _, known := range endapi.KnownTxnTypes {
				if tt == known {
					valid = true
					break
				}
			}
			if !valid {
				return nil, i18n.NewError(ctx, msgs.MsgSettingInvalidTxnType, tt)
			}
		}
	}
	err := s.p.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "config_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"config_value", "updated_at"}),
		}).
		Create(&configRow{ConfigName: name, ConfigValue: value}).
		Error
	if err != nil {
		return nil, err
	}
	return &Value{Name: name, Value: value, Source: SourceDatabase}, nil
}

func (s *provider) List(ctx context.Context) ([]*Value, error) {
	names := []string{
		AutoAcceptConnections,
		AutoAcceptAuthors,
		AutoEndorseRequests,
		AutoEndorseTxnTypes,
		RejectByDefault,
	}
	values := make([]*Value, 0, len(names))
	for _, name := range names {
		v, err := s.resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
