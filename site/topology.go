// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package site

import (
	"fmt"

	"github.com/pkg/errors"

	gerrors "github.com/clinicnet/shardroute/errors"
)

// Topology is the fixed set of configured sites and the master among them
type Topology struct {
	master ID
	order  []ID
	sites  map[ID]*Site
	codes  map[int]ID
}

// NewTopology builds a Topology. Sites keep the given order.
// Site IDs and codes must be unique and the master must be one of the sites.
func NewTopology(master ID, sites ...*Site) (*Topology, error) {
	if len(sites) == 0 {
		return nil, errors.New("at least one site is required")
	}

	topology := &Topology{
		master: master,
		order:  make([]ID, 0, len(sites)),
		sites:  make(map[ID]*Site, len(sites)),
		codes:  make(map[int]ID, len(sites)),
	}

	for _, site := range sites {
		if site == nil {
			return nil, errors.New("nil site")
		}

		if err := site.Validate(); err != nil {
			return nil, err
		}

		if _, ok := topology.sites[site.ID]; ok {
			return nil, fmt.Errorf("duplicate site %s", site.ID)
		}

		if other, ok := topology.codes[site.Code]; ok {
			return nil, fmt.Errorf("sites %s and %s share code %d", other, site.ID, site.Code)
		}

		topology.order = append(topology.order, site.ID)
		topology.sites[site.ID] = site
		topology.codes[site.Code] = site.ID
	}

	if _, ok := topology.sites[master]; !ok {
		return nil, errors.Wrapf(gerrors.ErrUnknownSite, "master %q", master)
	}

	return topology, nil
}

// Master returns the master site ID
func (t *Topology) Master() ID {
	return t.master
}

// IsMaster reports whether id is the master site
func (t *Topology) IsMaster(id ID) bool {
	return id == t.master
}

// IDs returns the site IDs in configuration order
func (t *Topology) IDs() []ID {
	ids := make([]ID, len(t.order))
	copy(ids, t.order)
	return ids
}

// Site returns the configured site
func (t *Topology) Site(id ID) (*Site, error) {
	site, ok := t.sites[id]
	if !ok {
		return nil, errors.Wrapf(gerrors.ErrUnknownSite, "site %q", id)
	}
	return site, nil
}

// ByCode returns the site owning the given code
func (t *Topology) ByCode(code int) (*Site, error) {
	id, ok := t.codes[code]
	if !ok {
		return nil, errors.Wrapf(gerrors.ErrUnknownSite, "site code %d", code)
	}
	return t.sites[id], nil
}

// Sites returns the configured sites in configuration order
func (t *Topology) Sites() []*Site {
	sites := make([]*Site, 0, len(t.order))
	for _, id := range t.order {
		sites = append(sites, t.sites[id])
	}
	return sites
}
