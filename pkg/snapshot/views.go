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

package snapshot

import (
	"sync"

	"github.com/carverauto/stackdock/pkg/models"
)

// Views holds the latest reconciled view per resource type. A type without a
// view is still loading.
type Views struct {
	mu     sync.RWMutex
	views  map[models.ResourceType]*models.View
	subs   map[models.ResourceType]map[int]chan *models.View
	nextID int
}

func NewViews() *Views {
	return &Views{
		views: make(map[models.ResourceType]*models.View),
		subs:  make(map[models.ResourceType]map[int]chan *models.View),
	}
}

// Get returns the current view, or false while the type is loading.
func (v *Views) Get(rt models.ResourceType) (*models.View, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	view, ok := v.views[rt]

	return view, ok
}

// Publish replaces the view of its type and notifies subscribers. Views with
// an older revision than the current one are ignored.
func (v *Views) Publish(view *models.View) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if cur, ok := v.views[view.ResourceType]; ok && view.Revision < cur.Revision {
		return
	}

	v.views[view.ResourceType] = view

	for _, ch := range v.subs[view.ResourceType] {
		offer(ch, view)
	}
}

// Reset drops the view of a type so it reads as loading again.
func (v *Views) Reset(rt models.ResourceType) {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.views, rt)
}

// Subscribe delivers the current view (if any) and every later one. Slow
// readers only ever see the newest view. cancel must be called to release
// the subscription.
func (v *Views) Subscribe(rt models.ResourceType) (<-chan *models.View, func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan *models.View, 1)

	if cur, ok := v.views[rt]; ok {
		ch <- cur
	}

	id := v.nextID
	v.nextID++

	if v.subs[rt] == nil {
		v.subs[rt] = make(map[int]chan *models.View)
	}

	v.subs[rt][id] = ch

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()

			delete(v.subs[rt], id)
			close(ch)
		})
	}

	return ch, cancel
}

// offer replaces any undelivered view with the new one. Callers hold v.mu, so
// there is a single sender per channel.
func offer(ch chan *models.View, view *models.View) {
	select {
	case <-ch:
	default:
	}

	ch <- view
}
