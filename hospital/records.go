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

package hospital

import (
	"context"
	"time"

	"github.com/clinicnet/shardroute/entity"
	"github.com/clinicnet/shardroute/gateway"
	"github.com/clinicnet/shardroute/internal/telemetry"
	"github.com/clinicnet/shardroute/result"
)

// records holds the reads every entity shares
type records[T any] struct {
	service    *Service
	entityType entity.Type
}

// List returns the rows visible at the current site
func (r records[T]) List(ctx context.Context) result.Result[[]T] {
	ctx, span := telemetry.SpanContext(ctx, "Service.List")
	defer span.End()

	current, err := r.service.locator.Detect(ctx)
	if err != nil {
		return result.Fail[[]T]("", nil, err)
	}

	var rows []T
	err = r.service.reader.List(ctx, r.entityType, current, &rows)
	return result.From(current, rows, err)
}

// Search returns the rows visible at the current site matching term
func (r records[T]) Search(ctx context.Context, term string) result.Result[[]T] {
	ctx, span := telemetry.SpanContext(ctx, "Service.Search")
	defer span.End()

	current, err := r.service.locator.Detect(ctx)
	if err != nil {
		return result.Fail[[]T]("", nil, err)
	}

	var rows []T
	err = r.service.reader.Search(ctx, r.entityType, current, term, &rows)
	return result.From(current, rows, err)
}

// Get returns the row with the given key
func (r records[T]) Get(ctx context.Context, key entity.Key) result.Result[T] {
	ctx, span := telemetry.SpanContext(ctx, "Service.Get")
	defer span.End()

	var row T
	current, err := r.service.locator.Detect(ctx)
	if err != nil {
		return result.Fail("", row, err)
	}

	err = r.service.reader.Get(ctx, r.entityType, current, key, &row)
	return result.From(current, row, err)
}

// Patients operates on patients
type Patients struct {
	records[entity.PatientRecord]
}

// Create inserts the patient at the current site with the next free identifier.
// The record's site and id are ignored.
func (p Patients) Create(ctx context.Context, patient entity.PatientRecord) result.Result[entity.Key] {
	return p.service.create(ctx, entity.Patient, func(key entity.Key) gateway.Procedure {
		patient.Site, patient.ID = key.Site, key.LocalID
		return gateway.CreatePatient(patient)
	})
}

// Update rewrites the patient at its owner site
func (p Patients) Update(ctx context.Context, patient entity.PatientRecord) result.Result[int64] {
	return p.service.write(ctx, gateway.UpdatePatient(patient))
}

// Delete removes the patient at its owner site
func (p Patients) Delete(ctx context.Context, key entity.Key) result.Result[int64] {
	return p.service.write(ctx, gateway.DeletePatient(key))
}

// Staff operates on medical staff
type Staff struct {
	records[entity.StaffRecord]
}

// Create inserts the staff member at the current site with the next free identifier
func (s Staff) Create(ctx context.Context, staff entity.StaffRecord) result.Result[entity.Key] {
	return s.service.create(ctx, entity.MedicalStaff, func(key entity.Key) gateway.Procedure {
		staff.Site, staff.ID = key.Site, key.LocalID
		return gateway.CreateStaff(staff)
	})
}

// CreateWithContract inserts the staff member at the current site and its
// contract at the master. On a partial write the result carries the staff key.
func (s Staff) CreateWithContract(ctx context.Context, staff entity.StaffRecord, salary float64, contractDate time.Time) result.Result[entity.Key] {
	current, err := s.service.locator.Detect(ctx)
	if err != nil {
		return result.Fail("", entity.Key{}, err)
	}

	key, err := s.service.coordinator.CreateStaffWithContract(ctx, current, staff, salary, contractDate)
	return result.From(current, key, err)
}

// Update rewrites the staff member at its owner site
func (s Staff) Update(ctx context.Context, staff entity.StaffRecord) result.Result[int64] {
	return s.service.write(ctx, gateway.UpdateStaff(staff))
}

// Delete removes the staff member at its owner site
func (s Staff) Delete(ctx context.Context, key entity.Key) result.Result[int64] {
	return s.service.write(ctx, gateway.DeleteStaff(key))
}

// Encounters operates on medical attentions
type Encounters struct {
	records[entity.EncounterRecord]
}

// Create inserts the encounter at the current site with the next free identifier
func (e Encounters) Create(ctx context.Context, encounter entity.EncounterRecord) result.Result[entity.Key] {
	return e.service.create(ctx, entity.Encounter, func(key entity.Key) gateway.Procedure {
		encounter.Site, encounter.ID = key.Site, key.LocalID
		return gateway.CreateEncounter(encounter)
	})
}

// Update rewrites the encounter at its owner site
func (e Encounters) Update(ctx context.Context, encounter entity.EncounterRecord) result.Result[int64] {
	return e.service.write(ctx, gateway.UpdateEncounter(encounter))
}

// Delete removes the encounter at its owner site
func (e Encounters) Delete(ctx context.Context, key entity.Key) result.Result[int64] {
	return e.service.write(ctx, gateway.DeleteEncounter(key))
}

// Experience operates on experience records, keyed by their staff member
type Experience struct {
	records[entity.ExperienceRecord]
}

// Create inserts the record at the owner site of its staff member
func (e Experience) Create(ctx context.Context, experience entity.ExperienceRecord) result.Result[entity.Key] {
	return result.Map(e.service.write(ctx, gateway.CreateExperience(experience)), func(int64) entity.Key {
		return experience.Key()
	})
}

// Update rewrites the record at its owner site
func (e Experience) Update(ctx context.Context, experience entity.ExperienceRecord) result.Result[int64] {
	return e.service.write(ctx, gateway.UpdateExperience(experience))
}

// Delete removes the record of the given staff key
func (e Experience) Delete(ctx context.Context, key entity.Key) result.Result[int64] {
	return e.service.write(ctx, gateway.DeleteExperience(key))
}

// Specialties operates on specialties. Writes are only permitted at the master.
type Specialties struct {
	records[entity.SpecialtyRecord]
}

// Get returns the specialty with the given id
func (s Specialties) Get(ctx context.Context, id int64) result.Result[entity.SpecialtyRecord] {
	return s.records.Get(ctx, entity.Key{LocalID: id})
}

// Create inserts the specialty with the master's highest id plus one
func (s Specialties) Create(ctx context.Context, specialty entity.SpecialtyRecord) result.Result[int64] {
	created := s.service.create(ctx, entity.Specialty, func(key entity.Key) gateway.Procedure {
		specialty.ID = key.LocalID
		return gateway.CreateSpecialty(specialty)
	})
	return result.Map(created, func(key entity.Key) int64 { return key.LocalID })
}

// Update rewrites the specialty
func (s Specialties) Update(ctx context.Context, specialty entity.SpecialtyRecord) result.Result[int64] {
	return s.service.write(ctx, gateway.UpdateSpecialty(specialty))
}

// Delete removes the specialty
func (s Specialties) Delete(ctx context.Context, id int64) result.Result[int64] {
	return s.service.write(ctx, gateway.DeleteSpecialty(id))
}

// AttentionTypes operates on attention types. Writes are only permitted at the master.
type AttentionTypes struct {
	records[entity.AttentionTypeRecord]
}

// Get returns the attention type with the given id
func (a AttentionTypes) Get(ctx context.Context, id int64) result.Result[entity.AttentionTypeRecord] {
	return a.records.Get(ctx, entity.Key{LocalID: id})
}

// Create inserts the attention type with the master's highest id plus one
func (a AttentionTypes) Create(ctx context.Context, attentionType entity.AttentionTypeRecord) result.Result[int64] {
	created := a.service.create(ctx, entity.AttentionType, func(key entity.Key) gateway.Procedure {
		attentionType.ID = key.LocalID
		return gateway.CreateAttentionType(attentionType)
	})
	return result.Map(created, func(key entity.Key) int64 { return key.LocalID })
}

// Update rewrites the attention type
func (a AttentionTypes) Update(ctx context.Context, attentionType entity.AttentionTypeRecord) result.Result[int64] {
	return a.service.write(ctx, gateway.UpdateAttentionType(attentionType))
}

// Delete removes the attention type
func (a AttentionTypes) Delete(ctx context.Context, id int64) result.Result[int64] {
	return a.service.write(ctx, gateway.DeleteAttentionType(id))
}

// Contracts operates on contracts. They are stored at the master and readable from every site.
type Contracts struct {
	records[entity.ContractRecord]
}

// Create inserts the contract of an existing staff member
func (c Contracts) Create(ctx context.Context, contract entity.ContractRecord) result.Result[entity.Key] {
	return result.Map(c.service.write(ctx, gateway.CreateContract(contract)), func(int64) entity.Key {
		return contract.Key()
	})
}

// Update rewrites the contract
func (c Contracts) Update(ctx context.Context, contract entity.ContractRecord) result.Result[int64] {
	return c.service.write(ctx, gateway.UpdateContract(contract))
}

// Delete removes the contract of the given staff key
func (c Contracts) Delete(ctx context.Context, key entity.Key) result.Result[int64] {
	return c.service.write(ctx, gateway.DeleteContract(key))
}
