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

package guard

import (
	"github.com/pkg/errors"

	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/site"
)

// Guard refuses writes to centralized entities anywhere but at the master site.
// It never touches the database.
type Guard struct {
	topology *site.Topology
	catalog  *entity.Catalog
}

// New creates an instance of Guard
func New(topology *site.Topology, catalog *entity.Catalog) (*Guard, error) {
	if topology == nil || catalog == nil {
		return nil, errors.New("topology and catalog are required")
	}
	return &Guard{topology: topology, catalog: catalog}, nil
}

// Authorize returns a PermissionDeniedError when op writes a centralized
// entity and current is not the master. Reads always pass, so do sharded
// and master-hosted entities whose writes are routed instead.
func (g *Guard) Authorize(entityType entity.Type, op entity.Operation, current site.ID) error {
	descriptor, err := g.catalog.Lookup(entityType)
	if err != nil {
		return err
	}

	if !op.IsWrite() || descriptor.Partitioning != entity.Centralized {
		return nil
	}

	if g.topology.IsMaster(current) {
		return nil
	}

	return gerrors.NewPermissionDeniedError(entityType.String(), string(op), current.String(), g.topology.Master().String())
}
