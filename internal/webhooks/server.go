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
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"github.com/hyperledger/firefly-common/pkg/log"
	"github.com/openwallet-foundation/acapy-endorser-service/internal/msgs"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/config"
	"github.com/openwallet-foundation/acapy-endorser-service/pkg/confutil"
)

// Server is the inbound HTTP listener the agent posts webhook events to.
// Every event is acknowledged with 200 regardless of processing outcome,
// because a failure response would just make the agent retry an event we
// already logged and moved past.
type Server struct {
	ctx             context.Context
	cancelCtx       func()
	service         *Service
	apiKey          string
	apiKeyHeader    string
	listener        net.Listener
	httpServer      *http.Server
	httpServerDone  chan error
	shutdownTimeout time.Duration
	started         bool
}

func NewServer(ctx context.Context, conf *config.WebhookServerConfig, service *Service) (_ *Server, err error) {
	s := &Server{
		service:         service,
		apiKey:          conf.APIKey,
		apiKeyHeader:    confutil.StringNotEmpty(conf.APIKeyHeader, "x-api-key"),
		httpServerDone:  make(chan error),
		shutdownTimeout: confutil.DurationMin(conf.ShutdownTimeout, 0, "10s"),
	}
	s.ctx, s.cancelCtx = context.WithCancel(ctx)

	if conf.Port == nil {
		return nil, i18n.NewError(ctx, msgs.MsgWebhookServerMissingPort)
	}

	listenAddr := fmt.Sprintf("%s:%d", confutil.StringNotEmpty(conf.Address, "0.0.0.0"), *conf.Port)
	if s.listener, err = net.Listen("tcp", listenAddr); err != nil {
		return nil, i18n.WrapError(ctx, err, msgs.MsgWebhookServerStartFail, listenAddr)
	}
	log.L(ctx).Infof("Webhook server listening on %s", s.listener.Addr())

	router := mux.NewRouter()
	router.HandleFunc("/topic/{topic}", s.handleEvent).Methods(http.MethodPost)
	router.HandleFunc("/topic/{topic}/", s.handleEvent).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(l net.Listener) context.Context {
			return s.ctx
		},
	}
	return s, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) handleEvent(res http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if s.apiKey != "" {
		if subtle.ConstantTimeCompare([]byte(req.Header.Get(s.apiKeyHeader)), []byte(s.apiKey)) != 1 {
			log.L(ctx).Warnf("Webhook delivery with missing or bad API key from %s", req.RemoteAddr)
			res.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	topic := mux.Vars(req)["topic"]
	payload, err := io.ReadAll(req.Body)
	if err != nil {
		log.L(ctx).Errorf("Failed to read webhook payload: %s", err)
		res.WriteHeader(http.StatusBadRequest)
		return
	}

	// The state rides in the payload, not the path
	var probe struct {
		State string `json:"state"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &probe); err != nil {
			log.L(ctx).Warnf("Unparsable payload on topic %s: %s", topic, err)
		}
	}

	log.L(ctx).Debugf("--> webhook %s/%s (%db)", topic, probe.State, len(payload))
	s.service.ProcessEvent(ctx, topic, probe.State, payload)

	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(http.StatusOK)
	_, _ = res.Write([]byte(`{}`))
}

func (s *Server) Start() {
	s.started = true
	go func() {
		s.httpServerDone <- s.httpServer.Serve(s.listener)
	}()
}

func (s *Server) Stop() {
	if !s.started {
		return
	}
	log.L(s.ctx).Infof("Webhook server shutting down")
	gracefulShutdown := make(chan struct{})
	go func() {
		defer close(gracefulShutdown)
		_ = s.httpServer.Shutdown(s.ctx)
	}()
	select {
	case <-time.After(s.shutdownTimeout):
		log.L(s.ctx).Warnf("Webhook server terminating after %s waiting for shutdown", s.shutdownTimeout)
		_ = s.httpServer.Close()
	case <-gracefulShutdown:
	}
	s.cancelCtx()
	err := <-s.httpServerDone
	log.L(s.ctx).Infof("Webhook server ended (err=%v)", err)
	s.started = false
}
