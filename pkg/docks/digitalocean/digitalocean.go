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

// Package digitalocean pulls droplets, domains, managed databases, snapshots and
// monitoring alert policies from the DigitalOcean v2 API.
package digitalocean

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/carverauto/stackdock/pkg/docks"
	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
)

const (
	// Type is the dock type and provider name.
	Type = "digitalocean"

	defaultEndpoint = "https://api.digitalocean.com"
)

// DropletRef is the cross reference other docks use for a droplet.
func DropletRef(id string) string {
	return "digitalocean:droplet:" + id
}

// Dock is the DigitalOcean adapter.
type Dock struct {
	cfg    *models.DockConfig
	client *docks.Client
	logger logger.Logger
}

// New is the docks.Factory for DigitalOcean.
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

type collector struct {
	rt    models.ResourceType
	path  string
	query url.Values
	items func(*page) []json.RawMessage
	build func(json.RawMessage) (*models.ResourceRecord, error)
}

func (d *Dock) collectors() []collector {
	return []collector{
		{
			rt:    models.ResourceTypeServer,
			path:  "/v2/droplets",
			items: func(p *page) []json.RawMessage { return p.Droplets },
			build: dropletRecord,
		},
		{
			rt:    models.ResourceTypeDomain,
			path:  "/v2/domains",
			items: func(p *page) []json.RawMessage { return p.Domains },
			build: domainRecord,
		},
		{
			rt:    models.ResourceTypeDatabase,
			path:  "/v2/databases",
			items: func(p *page) []json.RawMessage { return p.Databases },
			build: databaseRecord,
		},
		{
			rt:    models.ResourceTypeBackup,
			path:  "/v2/snapshots",
			query: url.Values{"resource_type": {"droplet"}},
			items: func(p *page) []json.RawMessage { return p.Snapshots },
			build: snapshotRecord,
		},
		{
			rt:    models.ResourceTypeAlert,
			path:  "/v2/monitoring/alerts",
			items: func(p *page) []json.RawMessage { return p.Policies },
			build: alertRecord,
		},
	}
}

// Fetch walks every enabled endpoint. Any endpoint failing fails the fetch so
// a partial listing never prunes records that still exist.
func (d *Dock) Fetch(ctx context.Context) ([]*models.ResourceRecord, error) {
	var out []*models.ResourceRecord

	for _, c := range d.collectors() {
		if !d.cfg.Wants(c.rt) {
			continue
		}

		records, err := d.collect(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("digitalocean %s: %w", c.rt, err)
		}

		d.logger.Debug().Str("resource_type", string(c.rt)).Int("count", len(records)).Msg("Fetched from DigitalOcean")

		out = append(out, records...)
	}

	return out, nil
}

func (d *Dock) collect(ctx context.Context, c collector) ([]*models.ResourceRecord, error) {
	query := url.Values{"per_page": {strconv.Itoa(docks.PageSize(d.cfg))}}
	for k, v := range c.query {
		query[k] = v
	}

	var out []*models.ResourceRecord

	next := c.path

	for next != "" {
		var p page

		if err := d.client.GetJSON(ctx, next, query, &p); err != nil {
			return nil, err
		}

		for _, raw := range c.items(&p) {
			rec, err := c.build(raw)
			if err != nil {
				d.logger.Warn().Err(err).Str("resource_type", string(c.rt)).Msg("Skipping undecodable DigitalOcean item")
				continue
			}

			out = append(out, rec)
		}

		// the next link already carries the query
		next, query = p.Links.Pages.Next, nil
	}

	return out, nil
}

func dropletRecord(raw json.RawMessage) (*models.ResourceRecord, error) {
	var d droplet
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}

	id := strconv.FormatInt(d.ID, 10)

	rec := docks.NewRecord(Type, models.ResourceTypeServer, id, raw)
	rec.Name = d.Name
	rec.Status = d.Status
	rec.Region = d.Region.Slug
	rec.Fingerprint = models.Fingerprint{
		CrossRefID: DropletRef(id),
		PublicIP:   publicIP(d.Networks.V4, d.Networks.V6),
	}

	return rec, nil
}

func publicIP(nets ...[]network) string {
	for _, list := range nets {
		for _, n := range list {
			if n.Type == "public" && n.IPAddress != "" {
				return n.IPAddress
			}
		}
	}

	return ""
}

func domainRecord(raw json.RawMessage) (*models.ResourceRecord, error) {
	var d domain
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}

	rec := docks.NewRecord(Type, models.ResourceTypeDomain, d.Name, raw)
	rec.Name = d.Name
	rec.Status = "active"
	rec.Fingerprint.Hostname = d.Name

	return rec, nil
}

func databaseRecord(raw json.RawMessage) (*models.ResourceRecord, error) {
	var db database
	if err := json.Unmarshal(raw, &db); err != nil {
		return nil, err
	}

	rec := docks.NewRecord(Type, models.ResourceTypeDatabase, db.ID, raw)
	rec.Name = db.Name
	rec.Status = db.Status
	rec.Region = db.Region
	rec.Fingerprint = models.Fingerprint{
		CrossRefID: "digitalocean:database:" + db.ID,
		Hostname:   db.Connection.Host,
	}

	return rec, nil
}

func snapshotRecord(raw json.RawMessage) (*models.ResourceRecord, error) {
	var s snapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}

	rec := docks.NewRecord(Type, models.ResourceTypeBackup, s.ID, raw)
	rec.Name = s.Name
	rec.Status = "available"

	if len(s.Regions) > 0 {
		rec.Region = s.Regions[0]
	}

	rec.Fingerprint.CrossRefID = "digitalocean:snapshot:" + s.ID

	return rec, nil
}

func alertRecord(raw json.RawMessage) (*models.ResourceRecord, error) {
	var a alertPolicy
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}

	rec := docks.NewRecord(Type, models.ResourceTypeAlert, a.UUID, raw)
	rec.Name = a.Description
	rec.Status = "disabled"

	if a.Enabled {
		rec.Status = "enabled"
	}

	return rec, nil
}
