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

// Package vercel pulls account and project domains from the Vercel REST API.
package vercel

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
	Type = "vercel"

	defaultEndpoint = "https://api.vercel.com"
)

type pagination struct {
	// Next is a millisecond timestamp cursor, null on the last page.
	Next *int64 `json:"next"`
}

type page struct {
	Domains    []json.RawMessage `json:"domains"`
	Projects   []json.RawMessage `json:"projects"`
	Pagination pagination        `json:"pagination"`
}

type domain struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Verified  bool   `json:"verified"`
	ProjectID string `json:"projectId"`
}

type project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Dock is the Vercel adapter.
type Dock struct {
	cfg    *models.DockConfig
	client *docks.Client
	teamID string
	logger logger.Logger
}

// New is the docks.Factory for Vercel. A "team_id" credential scopes requests to a team.
func New(cfg *models.DockConfig, log logger.Logger) (docks.Dock, error) {
	token, err := docks.Credential(cfg, "api_token")
	if err != nil {
		return nil, err
	}

	return &Dock{
		cfg:    cfg,
		client: docks.NewClient(Type, defaultEndpoint, cfg, log, docks.BearerToken(token)),
		teamID: cfg.Credentials["team_id"],
		logger: log,
	}, nil
}

func (*Dock) Name() string {
	return Type
}

// Fetch returns account domains followed by the domains attached to projects.
func (d *Dock) Fetch(ctx context.Context) ([]*models.ResourceRecord, error) {
	if !d.cfg.Wants(models.ResourceTypeDomain) {
		return nil, nil
	}

	var out []*models.ResourceRecord

	err := d.paginate(ctx, "/v5/domains", func(p *page) {
		for _, raw := range p.Domains {
			if rec, ok := d.domainRecord(raw, ""); ok {
				out = append(out, rec)
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("vercel domains: %w", err)
	}

	var projects []project

	err = d.paginate(ctx, "/v9/projects", func(p *page) {
		for _, raw := range p.Projects {
			var pr project
			if err := json.Unmarshal(raw, &pr); err != nil || pr.ID == "" {
				d.logger.Warn().Err(err).Msg("Skipping undecodable Vercel project")
				continue
			}

			projects = append(projects, pr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("vercel projects: %w", err)
	}

	for _, pr := range projects {
		err := d.paginate(ctx, "/v9/projects/"+url.PathEscape(pr.ID)+"/domains", func(p *page) {
			for _, raw := range p.Domains {
				if rec, ok := d.domainRecord(raw, pr.ID); ok {
					out = append(out, rec)
				}
			}
		})
		if err != nil {
			return nil, fmt.Errorf("vercel project %s domains: %w", pr.Name, err)
		}
	}

	d.logger.Debug().Int("count", len(out)).Int("projects", len(projects)).Msg("Fetched from Vercel")

	return out, nil
}

func (d *Dock) paginate(ctx context.Context, path string, fn func(*page)) error {
	query := url.Values{"limit": {strconv.Itoa(docks.PageSize(d.cfg))}}
	if d.teamID != "" {
		query.Set("teamId", d.teamID)
	}

	for {
		var p page

		if err := d.client.GetJSON(ctx, path, query, &p); err != nil {
			return err
		}

		fn(&p)

		if p.Pagination.Next == nil {
			return nil
		}

		query.Set("until", strconv.FormatInt(*p.Pagination.Next, 10))
	}
}

// domainRecord ids project domains by project so the same hostname attached
// to two projects stays two source records.
func (d *Dock) domainRecord(raw json.RawMessage, projectID string) (*models.ResourceRecord, bool) {
	var dm domain
	if err := json.Unmarshal(raw, &dm); err != nil || dm.Name == "" {
		d.logger.Warn().Err(err).Msg("Skipping undecodable Vercel domain")
		return nil, false
	}

	id := dm.ID
	if projectID != "" {
		id = projectID + "/" + dm.Name
	}

	if id == "" {
		id = dm.Name
	}

	rec := docks.NewRecord(Type, models.ResourceTypeDomain, id, raw)
	rec.Name = dm.Name
	rec.Fingerprint.Hostname = dm.Name
	rec.Status = "pending"

	if dm.Verified {
		rec.Status = "verified"
	}

	return rec, true
}
