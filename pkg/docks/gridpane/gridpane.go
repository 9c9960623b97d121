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

// Package gridpane pulls servers, sites and backups from the GridPane API.
// Servers that GridPane provisioned on DigitalOcean carry the droplet cross
// reference so they line up with the DigitalOcean dock.
package gridpane

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/carverauto/stackdock/pkg/docks"
	"github.com/carverauto/stackdock/pkg/docks/digitalocean"
	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
)

const (
	// Type is the dock type and provider name.
	Type = "gridpane"

	defaultEndpoint = "https://my.gridpane.com"
	apiPrefix       = "/oauth/api/v1"
)

type pageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

// page accepts both flat and meta-wrapped paginator envelopes.
type page struct {
	Data []json.RawMessage `json:"data"`
	pageMeta
	Meta *pageMeta `json:"meta"`
}

func (p *page) lastPage() int {
	if p.Meta != nil && p.Meta.LastPage > 0 {
		return p.Meta.LastPage
	}

	return p.LastPage
}

// flexID decodes ids GridPane sends as either numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}

	*f = flexID(s)

	return nil
}

type server struct {
	ID         flexID `json:"id"`
	Label      string `json:"label"`
	IP         string `json:"ip"`
	Provider   string `json:"provider"`
	ProviderID flexID `json:"provider_id"`
	Status     string `json:"status"`
	Region     string `json:"region"`
}

type site struct {
	ID       flexID `json:"id"`
	URL      string `json:"url"`
	ServerID flexID `json:"server_id"`
	Status   string `json:"status"`
}

type backup struct {
	ID      flexID `json:"id"`
	SiteURL string `json:"site_url"`
	Type    string `json:"type"`
	Status  string `json:"status"`
}

// Dock is the GridPane adapter.
type Dock struct {
	cfg    *models.DockConfig
	client *docks.Client
	logger logger.Logger
}

// New is the docks.Factory for GridPane.
func New(cfg *models.DockConfig, log logger.Logger) (docks.Dock, error) {
	token, err := docks.Credential(cfg, "api_token")
	if err != nil {
		return nil, err
	}

	return &Dock{
		cfg:    cfg,
		client: docks.NewClient(Type, defaultEndpoint, cfg, log, docks.BearerToken(token)),
		logger: log,
	}, nil
}

func (*Dock) Name() string {
	return Type
}

type endpoint struct {
	rt    models.ResourceType
	path  string
	build func(json.RawMessage) (*models.ResourceRecord, error)
}

// Fetch returns servers, then sites as domains, then backups.
func (d *Dock) Fetch(ctx context.Context) ([]*models.ResourceRecord, error) {
	endpoints := []endpoint{
		{rt: models.ResourceTypeServer, path: "/server", build: serverRecord},
		{rt: models.ResourceTypeDomain, path: "/site", build: siteRecord},
		{rt: models.ResourceTypeBackup, path: "/backups", build: backupRecord},
	}

	var out []*models.ResourceRecord

	for _, ep := range endpoints {
		if !d.cfg.Wants(ep.rt) {
			continue
		}

		records, err := d.collect(ctx, ep)
		if err != nil {
			return nil, fmt.Errorf("gridpane %s: %w", ep.rt, err)
		}

		out = append(out, records...)
	}

	d.logger.Debug().Int("count", len(out)).Msg("Fetched from GridPane")

	return out, nil
}

func (d *Dock) collect(ctx context.Context, ep endpoint) ([]*models.ResourceRecord, error) {
	var out []*models.ResourceRecord

	query := url.Values{"per_page": {strconv.Itoa(docks.PageSize(d.cfg))}}

	for pageNo := 1; ; pageNo++ {
		query.Set("page", strconv.Itoa(pageNo))

		var p page

		if err := d.client.GetJSON(ctx, apiPrefix+ep.path, query, &p); err != nil {
			return nil, err
		}

		for _, raw := range p.Data {
			rec, err := ep.build(raw)
			if err != nil {
				d.logger.Warn().Err(err).Str("resource_type", string(ep.rt)).Msg("Skipping undecodable GridPane item")
				continue
			}

			out = append(out, rec)
		}

		if len(p.Data) == 0 || pageNo >= p.lastPage() {
			return out, nil
		}
	}
}

func serverRecord(raw json.RawMessage) (*models.ResourceRecord, error) {
	var s server
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}

	rec := docks.NewRecord(Type, models.ResourceTypeServer, string(s.ID), raw)
	rec.Name = s.Label
	rec.Status = s.Status
	rec.Region = s.Region
	rec.Fingerprint.PublicIP = s.IP

	if strings.EqualFold(s.Provider, digitalocean.Type) && s.ProviderID != "" {
		rec.Fingerprint.CrossRefID = digitalocean.DropletRef(string(s.ProviderID))
	}

	return rec, nil
}

func siteRecord(raw json.RawMessage) (*models.ResourceRecord, error) {
	var s site
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}

	host := s.URL
	if u, err := url.Parse(s.URL); err == nil && u.Host != "" {
		host = u.Hostname()
	}

	rec := docks.NewRecord(Type, models.ResourceTypeDomain, string(s.ID), raw)
	rec.Name = host
	rec.Status = s.Status
	rec.Fingerprint.Hostname = host

	return rec, nil
}

func backupRecord(raw json.RawMessage) (*models.ResourceRecord, error) {
	var b backup
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, err
	}

	rec := docks.NewRecord(Type, models.ResourceTypeBackup, string(b.ID), raw)
	rec.Name = strings.TrimSpace(b.SiteURL + " " + b.Type)
	rec.Status = b.Status

	return rec, nil
}
