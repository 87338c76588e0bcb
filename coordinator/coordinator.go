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

package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/clinicnet/shardroute/allocator"
	"github.com/clinicnet/shardroute/entity"
	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/gateway"
	"github.com/clinicnet/shardroute/internal/telemetry"
	"github.com/clinicnet/shardroute/log"
	"github.com/clinicnet/shardroute/metric"
	"github.com/clinicnet/shardroute/site"
)

// Step is a state of the staff and contract write
type Step string

const (
	StepAllocateID     Step = "allocate_id"
	StepInsertStaff    Step = "insert_staff"
	StepInsertContract Step = "insert_contract"
	StepCompensate     Step = "compensate"
	StepDone           Step = "done"
)

// IDClaimer reserves local identifiers
type IDClaimer interface {
	Claim(ctx context.Context, entityType entity.Type, id site.ID) (*allocator.Lease, error)
}

// ProcedureCaller invokes write procedures
type ProcedureCaller interface {
	Call(ctx context.Context, current site.ID, proc gateway.Procedure) (int64, error)
}

// Coordinator writes a staff member at the current site and its contract at
// the master. The two writes are not atomic: when the contract fails after the
// staff row exists, the configured Policy applies and a PartialWriteError
// carrying the staff key is returned.
type Coordinator struct {
	claimer IDClaimer
	caller  ProcedureCaller
	policy  Policy
	logger  log.Logger
	metrics *metric.RoutingMetric
	nextID  func() string
}

// New creates an instance of Coordinator
func New(claimer IDClaimer, caller ProcedureCaller, opts ...Option) (*Coordinator, error) {
	if claimer == nil || caller == nil {
		return nil, errors.New("claimer and caller are required")
	}

	coordinator := &Coordinator{
		claimer: claimer,
		caller:  caller,
		policy:  Compensate,
		logger:  log.DiscardLogger,
		nextID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt.Apply(coordinator)
	}
	return coordinator, nil
}

// Policy returns the configured compensation policy
func (c *Coordinator) Policy() Policy {
	return c.policy
}

// CreateStaffWithContract allocates a staff id at the current site, inserts the
// staff row and then its contract. The staff's Site and ID are overwritten with
// the allocated key.
func (c *Coordinator) CreateStaffWithContract(ctx context.Context, current site.ID, staff entity.StaffRecord, salary float64, contractDate time.Time) (entity.Key, error) {
	ctx, span := telemetry.SpanContext(ctx, "Coordinator.CreateStaffWithContract", telemetry.SiteKey.String(current.String()))
	defer span.End()

	logger := c.logger.With("correlation_id", c.nextID(), "site", current.String())

	step := StepAllocateID
	logger.Infof("step %s", step)
	lease, err := c.claimer.Claim(ctx, entity.MedicalStaff, current)
	if err != nil {
		logger.Errorf("step %s failed: %v", step, err)
		c.metrics.RecordCrossShardWrite(ctx, current.String(), metric.OutcomeFailed)
		return entity.Key{}, err
	}

	key := lease.Key()
	staff.Site, staff.ID = key.Site, key.LocalID

	step = StepInsertStaff
	logger.Infof("step %s %s", step, key)
	if _, err := c.caller.Call(ctx, current, gateway.CreateStaff(staff)); err != nil {
		logger.Errorf("step %s failed: %v", step, err)
		if rerr := lease.Release(ctx); rerr != nil {
			logger.Warnf("failed to release id %d: %v", key.LocalID, rerr)
		}
		c.metrics.RecordCrossShardWrite(ctx, current.String(), metric.OutcomeFailed)
		return entity.Key{}, err
	}

	if err := lease.Commit(ctx); err != nil {
		logger.Warnf("failed to commit id %d: %v", key.LocalID, err)
	}

	step = StepInsertContract
	logger.Infof("step %s %s", step, key)
	contract := entity.ContractRecord{Site: key.Site, StaffID: key.LocalID, Salary: salary, Date: contractDate}
	if _, err := c.caller.Call(ctx, current, gateway.CreateContract(contract)); err != nil {
		logger.Errorf("step %s failed: %v", step, err)
		span.RecordError(err)
		return key, c.partial(ctx, logger, current, key, err)
	}

	logger.Infof("step %s %s", StepDone, key)
	c.metrics.RecordCrossShardWrite(ctx, current.String(), metric.OutcomeOK)
	return key, nil
}

func (c *Coordinator) partial(ctx context.Context, logger log.Logger, current site.ID, key entity.Key, cause error) error {
	partial := gerrors.NewPartialWriteError(key.Site, key.LocalID, cause)
	if c.policy == LeavePartial {
		logger.Warnf("staff %s left without contract", key)
		c.metrics.RecordCrossShardWrite(ctx, current.String(), metric.OutcomePartial)
		return partial
	}

	logger.Infof("step %s %s", StepCompensate, key)
	if _, err := c.caller.Call(ctx, current, gateway.DeleteStaff(key)); err != nil {
		logger.Errorf("step %s failed: %v", StepCompensate, err)
		partial.CompensationErr = err
		c.metrics.RecordCrossShardWrite(ctx, current.String(), metric.OutcomePartial)
		return partial
	}

	partial.Compensated = true
	c.metrics.RecordCrossShardWrite(ctx, current.String(), metric.OutcomeCompensated)
	return partial
}
