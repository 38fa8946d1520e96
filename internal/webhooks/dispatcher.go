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

// Package webhooks receives the agent's event stream and routes each event
// to a persistence handler and an optional auto-decision step. Webhook
// delivery must never fail back to the agent, so every failure path here is
// logged and contained.
package webhooks

import (
	"context"
	"strings"

	"github.com/hyperledger/firefly-common/pkg/log"
)

// Handler persists the event and returns the stored object for the
// follow-on step, or nil when there is nothing further to do.
type Handler func(ctx context.Context, payload []byte) (any, error)

// Stepper runs the auto-decision step on the object the handler stored.
type Stepper func(ctx context.Context, result any) error

type Dispatcher struct {
	handlers map[string]Handler
	steppers map[string]Stepper
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: map[string]Handler{},
		steppers: map[string]Stepper{},
	}
}

// EventKey normalizes a topic/state pair to a lookup key: lowercased, with
// every run of non-alphanumeric characters collapsed to one underscore.
func EventKey(topic, state string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(topic + "_" + state) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

func (d *Dispatcher) RegisterHandler(topic, state string, h Handler) {
	d.handlers[EventKey(topic, state)] = h
}

func (d *Dispatcher) RegisterStepper(topic, state string, s Stepper) {
	d.steppers[EventKey(topic, state)] = s
}

// ProcessEvent runs the handler and stepper registered for the event.
// Unknown events are a no-op: agents emit topics this service has no
// interest in, and new states must not break delivery.
func (d *Dispatcher) ProcessEvent(ctx context.Context, topic, state string, payload []byte) {
	key := EventKey(topic, state)
	l := log.L(ctx)

	defer func() {
		if r := recover(); r != nil {
			l.Errorf("Recovered from panic processing event %s: %v", key, r)
		}
	}()

	handler, ok := d.handlers[key]
	if !ok {
		l.Warnf("No handler for event %s", key)
		return
	}

	result, err := handler(ctx, payload)
	if err != nil {
		l.Errorf("Handler for event %s failed: %s", key, err)
		return
	}

	stepper, ok := d.steppers[key]
	if !ok || result == nil {
		return
	}
	if err := stepper(ctx, result); err != nil {
		l.Errorf("Auto-decision step for event %s failed: %s", key, err)
	}
}
