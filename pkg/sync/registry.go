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

package sync

import (
	"github.com/carverauto/stackdock/pkg/docks"
	"github.com/carverauto/stackdock/pkg/docks/digitalocean"
	"github.com/carverauto/stackdock/pkg/docks/gridpane"
	"github.com/carverauto/stackdock/pkg/docks/vercel"
)

// DefaultRegistry knows every built-in dock type.
func DefaultRegistry() *docks.Registry {
	r := docks.NewRegistry()

	// the names are distinct, so registration cannot fail
	_ = r.Register(digitalocean.Type, digitalocean.New)
	_ = r.Register(vercel.Type, vercel.New)
	_ = r.Register(gridpane.Type, gridpane.New)

	return r
}
