/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package docks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
)

func TestRegistry(t *testing.T) {
	ctrl := gomock.NewController(t)
	dock := NewMockDock(ctrl)

	r := NewRegistry()
	require.NoError(t, r.Register("Vercel", func(*models.DockConfig, logger.Logger) (Dock, error) {
		return dock, nil
	}))

	err := r.Register("vercel", nil)
	require.ErrorIs(t, err, ErrDuplicateFactory)

	got, err := r.New(&models.DockConfig{Type: "VERCEL"}, logger.NewTestLogger())
	require.NoError(t, err)
	assert.Same(t, dock, got)

	_, err = r.New(&models.DockConfig{Type: "heroku"}, logger.NewTestLogger())
	require.ErrorIs(t, err, ErrUnknownDockType)

	assert.Equal(t, []string{"vercel"}, r.Types())
}

func TestCredential(t *testing.T) {
	cfg := &models.DockConfig{Type: "vercel", Credentials: map[string]string{"api_token": " tok "}}

	v, err := Credential(cfg, "api_token")
	require.NoError(t, err)
	assert.Equal(t, "tok", v)

	_, err = Credential(cfg, "team_id")
	require.ErrorIs(t, err, ErrMissingCredential)
}
