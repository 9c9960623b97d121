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

package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/carverauto/stackdock/pkg/models"
	"github.com/carverauto/stackdock/pkg/reconcile"
)

const (
	statusLoading = "loading"
	statusReady   = "ready"
)

// parseType reads {type}, accepting plural and mixed-case names.
func parseType(r *http.Request) (models.ResourceType, error) {
	return models.ParseResourceType(mux.Vars(r)["type"])
}

func provenance(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("provenance"))
	return err == nil && v
}

// Table renders a view, or the loading placeholder when view is nil.
func Table(rt models.ResourceType, view *models.View, withSources bool) models.ResourceTable {
	if view == nil {
		return models.ResourceTable{ResourceType: rt, Status: statusLoading, Rows: []models.ResourceRow{}}
	}

	return models.ResourceTable{
		ResourceType: rt,
		Status:       statusReady,
		Revision:     view.Revision,
		UpdatedAt:    view.UpdatedAt,
		SourceCount:  view.SourceCount,
		Rows:         reconcile.Rows(view.Rows, withSources),
	}
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	rt, err := parseType(r)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	view, ok := s.views.Get(rt)
	if !ok {
		w.Header().Set("Retry-After", "5")
		s.writeJSON(w, http.StatusServiceUnavailable, Table(rt, nil, false))

		return
	}

	s.writeJSON(w, http.StatusOK, Table(rt, view, provenance(r)))
}
