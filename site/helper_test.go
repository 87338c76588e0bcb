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
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errRefused = errors.New("connection refused")

// fakeProber answers for the sites marked up and records probe order
type fakeProber struct {
	mu     sync.Mutex
	up     map[ID]bool
	probed []ID
}

func newFakeProber(up ...ID) *fakeProber {
	prober := &fakeProber{up: make(map[ID]bool)}
	for _, id := range up {
		prober.up[id] = true
	}
	return prober
}

func (p *fakeProber) Probe(ctx context.Context, site *Site) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, site.ID)
	if !p.up[site.ID] {
		return errRefused
	}
	return ctx.Err()
}

func (p *fakeProber) set(id ID, up bool) {
	p.mu.Lock()
	p.up[id] = up
	p.mu.Unlock()
}

func (p *fakeProber) calls() []ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ID, len(p.probed))
	copy(out, p.probed)
	return out
}

// slowProber answers every site after delay
type slowProber struct {
	delay time.Duration
}

func (p *slowProber) Probe(ctx context.Context, _ *Site) error {
	select {
	case <-time.After(p.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func testTopology(t *testing.T) *Topology {
	t.Helper()
	topology, err := NewTopology("quito",
		&Site{ID: "quito", Code: 1, Link: "quito_link"},
		&Site{ID: "guayaquil", Code: 2, Link: "guayaquil_link"},
	)
	if err != nil {
		t.Fatal(err)
	}
	return topology
}
