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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/acapy"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/allowlist"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/connections"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/endorsemgr"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/policy"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/settings"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/webhooks"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/witnessmgr"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/config"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/confutil"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/persistence"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := run(); err != nil {
		log.L(context.Background()).Errorf("Endorser service failed: %s", err)
		os.Exit(1)
	}
}

func run() error {
	configFile := flag.String("config", "./config.endorser.yaml", "Path to the YAML configuration file")
	flag.Parse()

	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	var conf config.EndorserConfig
	if err := config.ReadAndParseYAMLFile(ctx, *configFile, &conf); err != nil {
		return err
	}
	log.SetLevel(confutil.StringNotEmpty(conf.Log.Level, "info"))
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	p, err := persistence.NewPersistence(ctx, &conf.DB)
	if err != nil {
		return err
	}
	defer p.Close()

	agent, err := acapy.NewClient(ctx, &conf.AgentAPI)
	if err != nil {
		return err
	}

	// The agent may still be starting up alongside us - the DID is only
	// informational on stored transactions, so don't block on it
	endorserDID, err := agent.GetPublicDID(ctx)
	if err != nil {
		log.L(ctx).Warnf("Could not resolve the endorser public DID at startup: %s", err)
	}

	settingsProvider := settings.NewProvider(p, &conf.Endorser)
	allowList := allowlist.NewStore(p)
	evaluator := policy.NewEvaluator(allowList, agent)

	connMgr := connections.NewManager(p, agent, settingsProvider,
		confutil.StringNotEmpty(conf.Endorser.PublicName, "Endorser"))
	endorseMgr := endorsemgr.NewManager(p, agent, settingsProvider, evaluator, connMgr, endorserDID)
	witnessMgr := witnessmgr.NewManager(p, agent, settingsProvider, evaluator)

	// New allow list entries unblock transactions waiting on a decision
	allowList.SetChangeListener(endorseMgr.ReevaluatePending)

	service := webhooks.NewService(connMgr, endorseMgr, witnessMgr)
	server, err := webhooks.NewServer(ctx, &conf.WebhookServer, service)
	if err != nil {
		return err
	}
	server.Start()
	defer server.Stop()

	log.L(ctx).Infof("Endorser service started")
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.L(ctx).Infof("Endorser service stopping on signal %s", sig)
	return nil
}
