// Copyright 2025 The bspterm Authors
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
//
// SPDX-License-Identifier: Apache-2.0

package errdefs

import "errors"

var (
	// Transport errors. Surfaced by connect/open operations and never
	// retried by the core; retry policy belongs to the caller.
	ErrConnectTimeout = errors.New("connection timed out")
	ErrAuthFailed     = errors.New("authentication failed")
	ErrNetwork        = errors.New("network error")
	ErrChannelClosed  = errors.New("channel is closed")
	ErrSessionClosed  = errors.New("session is closed")
	ErrDisconnected   = errors.New("session is disconnected")

	// Registry errors.
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidID       = errors.New("invalid session id")

	// Automation errors.
	ErrWaitTimeout    = errors.New("wait timed out")
	ErrInvalidPattern = errors.New("invalid pattern")
	ErrOpenSocketCtrl = errors.New("could not open ctrl socket")
	ErrServerClosed   = errors.New("server closed")

	// Configuration errors.
	ErrConfig           = errors.New("config error")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrNoCredentials    = errors.New("no credential method provided")
	ErrInvalidFlag      = errors.New("invalid flag usage")
	ErrTooManyArguments = errors.New("too many arguments")
)
