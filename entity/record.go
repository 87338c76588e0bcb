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

package entity

import "time"

// PatientRecord is a row of the patient view
type PatientRecord struct {
	Site      int       `db:"id_hospital"`
	ID        int64     `db:"id_paciente"`
	FirstName string    `db:"nombre"`
	LastName  string    `db:"apellido"`
	Address   string    `db:"direccion"`
	BirthDate time.Time `db:"fecha_nacimiento"`
	Sex       string    `db:"sexo"`
	Phone     string    `db:"telefono"`
}

// Key returns the composite key of the row
func (r PatientRecord) Key() Key { return Key{Site: r.Site, LocalID: r.ID} }

// StaffRecord is a row of the medical staff view
type StaffRecord struct {
	Site        int    `db:"id_hospital"`
	ID          int64  `db:"id_personal"`
	SpecialtyID int64  `db:"id_especialidad"`
	FirstName   string `db:"nombre"`
	LastName    string `db:"apellido"`
	Phone       string `db:"telefono"`
}

// Key returns the composite key of the row
func (r StaffRecord) Key() Key { return Key{Site: r.Site, LocalID: r.ID} }

// EncounterRecord is a row of the medical attention view
type EncounterRecord struct {
	Site        int       `db:"id_hospital"`
	ID          int64     `db:"id_atencion"`
	PatientID   int64     `db:"id_paciente"`
	StaffID     int64     `db:"id_personal"`
	TypeID      int64     `db:"id_tipo"`
	Date        time.Time `db:"fecha"`
	Diagnosis   string    `db:"diagnostico"`
	Description string    `db:"descripcion"`
	Treatment   string    `db:"tratamiento"`
}

// Key returns the composite key of the row
func (r EncounterRecord) Key() Key { return Key{Site: r.Site, LocalID: r.ID} }

// ExperienceRecord is a row of the experience view, keyed by its staff member
type ExperienceRecord struct {
	Site     int    `db:"id_hospital"`
	StaffID  int64  `db:"id_personal"`
	Position string `db:"cargo"`
	Years    int    `db:"anios_exp"`
}

// Key returns the composite key of the row
func (r ExperienceRecord) Key() Key { return Key{Site: r.Site, LocalID: r.StaffID} }

// SpecialtyRecord is a row of the specialty table
type SpecialtyRecord struct {
	ID   int64  `db:"id_especialidad"`
	Area string `db:"area"`
}

// AttentionTypeRecord is a row of the attention type table
type AttentionTypeRecord struct {
	ID   int64  `db:"id_tipo"`
	Name string `db:"tipo"`
}

// ContractRecord is a row of the contract table, keyed by its staff member
type ContractRecord struct {
	Site    int       `db:"id_hospital"`
	StaffID int64     `db:"id_personal"`
	Salary  float64   `db:"salario"`
	Date    time.Time `db:"fecha_contrato"`
}

// Key returns the composite key of the row
func (r ContractRecord) Key() Key { return Key{Site: r.Site, LocalID: r.StaffID} }
