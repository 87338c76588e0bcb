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

package gateway

import (
	"github.com/clinicnet/shardroute/entity"
)

// Procedure is a stored procedure call writing one entity.
// Params follow the fixed positional order of the procedure.
type Procedure struct {
	// Entity is the written entity
	Entity entity.Type
	// Op is the write operation
	Op entity.Operation
	// Name overrides the catalog's procedure name when set
	Name string
	// OwnerCode is the owner-site code of the written row. Centralized and
	// master-hosted entities are always written at the master.
	OwnerCode int
	// Params are the positional procedure arguments
	Params []any
}

func command(entityType entity.Type, op entity.Operation, owner int, params ...any) Procedure {
	return Procedure{Entity: entityType, Op: op, OwnerCode: owner, Params: params}
}

// CreatePatient calls the patient create procedure:
// site, local_id, first_name, last_name, address, birth_date, sex, phone
func CreatePatient(r entity.PatientRecord) Procedure {
	return command(entity.Patient, entity.Create, r.Site, patientParams(r)...)
}

// UpdatePatient calls the patient update procedure with the create order
func UpdatePatient(r entity.PatientRecord) Procedure {
	return command(entity.Patient, entity.Update, r.Site, patientParams(r)...)
}

// DeletePatient calls the patient delete procedure: site, local_id
func DeletePatient(key entity.Key) Procedure {
	return command(entity.Patient, entity.Delete, key.Site, key.Site, key.LocalID)
}

func patientParams(r entity.PatientRecord) []any {
	return []any{r.Site, r.ID, r.FirstName, r.LastName, r.Address, r.BirthDate, r.Sex, r.Phone}
}

// CreateStaff calls the staff create procedure:
// site, local_id, specialty_id, first_name, last_name, phone
func CreateStaff(r entity.StaffRecord) Procedure {
	return command(entity.MedicalStaff, entity.Create, r.Site, staffParams(r)...)
}

// UpdateStaff calls the staff update procedure with the create order
func UpdateStaff(r entity.StaffRecord) Procedure {
	return command(entity.MedicalStaff, entity.Update, r.Site, staffParams(r)...)
}

// DeleteStaff calls the staff delete procedure: site, local_id
func DeleteStaff(key entity.Key) Procedure {
	return command(entity.MedicalStaff, entity.Delete, key.Site, key.Site, key.LocalID)
}

func staffParams(r entity.StaffRecord) []any {
	return []any{r.Site, r.ID, r.SpecialtyID, r.FirstName, r.LastName, r.Phone}
}

// CreateEncounter calls the encounter create procedure:
// site, local_id, patient_id, staff_id, type_id, date, diagnosis, description, treatment
func CreateEncounter(r entity.EncounterRecord) Procedure {
	return command(entity.Encounter, entity.Create, r.Site, encounterParams(r)...)
}

// UpdateEncounter calls the encounter update procedure with the create order
func UpdateEncounter(r entity.EncounterRecord) Procedure {
	return command(entity.Encounter, entity.Update, r.Site, encounterParams(r)...)
}

// DeleteEncounter calls the encounter delete procedure: site, local_id
func DeleteEncounter(key entity.Key) Procedure {
	return command(entity.Encounter, entity.Delete, key.Site, key.Site, key.LocalID)
}

func encounterParams(r entity.EncounterRecord) []any {
	return []any{r.Site, r.ID, r.PatientID, r.StaffID, r.TypeID, r.Date, r.Diagnosis, r.Description, r.Treatment}
}

// CreateExperience calls the experience create procedure: site, staff_id, position, years
func CreateExperience(r entity.ExperienceRecord) Procedure {
	return command(entity.Experience, entity.Create, r.Site, r.Site, r.StaffID, r.Position, r.Years)
}

// UpdateExperience calls the experience update procedure with the create order
func UpdateExperience(r entity.ExperienceRecord) Procedure {
	return command(entity.Experience, entity.Update, r.Site, r.Site, r.StaffID, r.Position, r.Years)
}

// DeleteExperience calls the experience delete procedure: site, staff_id
func DeleteExperience(key entity.Key) Procedure {
	return command(entity.Experience, entity.Delete, key.Site, key.Site, key.LocalID)
}

// CreateSpecialty calls the specialty create procedure: id, area
func CreateSpecialty(r entity.SpecialtyRecord) Procedure {
	return command(entity.Specialty, entity.Create, 0, r.ID, r.Area)
}

// UpdateSpecialty calls the specialty update procedure: id, area
func UpdateSpecialty(r entity.SpecialtyRecord) Procedure {
	return command(entity.Specialty, entity.Update, 0, r.ID, r.Area)
}

// DeleteSpecialty calls the specialty delete procedure: id
func DeleteSpecialty(id int64) Procedure {
	return command(entity.Specialty, entity.Delete, 0, id)
}

// CreateAttentionType calls the attention type create procedure: id, name
func CreateAttentionType(r entity.AttentionTypeRecord) Procedure {
	return command(entity.AttentionType, entity.Create, 0, r.ID, r.Name)
}

// UpdateAttentionType calls the attention type update procedure: id, name
func UpdateAttentionType(r entity.AttentionTypeRecord) Procedure {
	return command(entity.AttentionType, entity.Update, 0, r.ID, r.Name)
}

// DeleteAttentionType calls the attention type delete procedure: id
func DeleteAttentionType(id int64) Procedure {
	return command(entity.AttentionType, entity.Delete, 0, id)
}

// CreateContract calls the contract create procedure: site, staff_local_id, salary, contract_date
func CreateContract(r entity.ContractRecord) Procedure {
	return command(entity.Contract, entity.Create, r.Site, contractParams(r)...)
}

// UpdateContract calls the contract update procedure with the create order
func UpdateContract(r entity.ContractRecord) Procedure {
	return command(entity.Contract, entity.Update, r.Site, contractParams(r)...)
}

// DeleteContract calls the contract delete procedure: site, staff_local_id
func DeleteContract(key entity.Key) Procedure {
	return command(entity.Contract, entity.Delete, key.Site, key.Site, key.LocalID)
}

func contractParams(r entity.ContractRecord) []any {
	return []any{r.Site, r.StaffID, r.Salary, r.Date}
}
