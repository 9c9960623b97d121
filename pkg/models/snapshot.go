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

package models

import "time"

// Snapshot is an immutable read of all records of one resource type.
// Loading is set while the source has not delivered its first complete read;
// a loaded snapshot with no records is a real, empty table.
type Snapshot struct {
	ResourceType ResourceType
	Records      []*ResourceRecord
	Loading      bool
	Revision     uint64
	TakenAt      time.Time
}

// View is the reconciled form of a snapshot, as served to the dashboard.
type View struct {
	ResourceType ResourceType      `json:"resource_type"`
	Rows         []*ResourceRecord `json:"rows"`
	SourceCount  int               `json:"source_count"`
	Revision     uint64            `json:"revision"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
