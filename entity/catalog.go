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

import (
	"github.com/pkg/errors"

	gerrors "github.com/clinicnet/shardroute/errors"
)

// Catalog maps every entity type to its descriptor.
// A Catalog is read-only once built.
type Catalog struct {
	descriptors map[Type]*Descriptor
}

// NewCatalog builds a catalog from the given descriptors
func NewCatalog(descriptors ...*Descriptor) (*Catalog, error) {
	catalog := &Catalog{descriptors: make(map[Type]*Descriptor, len(descriptors))}
	for _, descriptor := range descriptors {
		if err := descriptor.Validate(); err != nil {
			return nil, err
		}
		catalog.descriptors[descriptor.Type] = descriptor.clone()
	}
	return catalog, nil
}

// Lookup returns the descriptor of the entity type
func (c *Catalog) Lookup(entityType Type) (*Descriptor, error) {
	descriptor, ok := c.descriptors[entityType]
	if !ok {
		return nil, errors.Wrapf(gerrors.ErrUnknownEntity, "entity %q", entityType)
	}
	return descriptor, nil
}

// Types returns the catalogued entity types
func (c *Catalog) Types() []Type {
	types := make([]Type, 0, len(c.descriptors))
	for _, entityType := range allTypes {
		if _, ok := c.descriptors[entityType]; ok {
			types = append(types, entityType)
		}
	}
	return types
}

// With returns a copy of the catalog where the given descriptors replace
// the ones of the same type
func (c *Catalog) With(descriptors ...*Descriptor) (*Catalog, error) {
	merged := make([]*Descriptor, 0, len(c.descriptors)+len(descriptors))
	for _, descriptor := range c.descriptors {
		merged = append(merged, descriptor)
	}
	merged = append(merged, descriptors...)
	return NewCatalog(merged...)
}

var allTypes = []Type{Patient, MedicalStaff, Encounter, Experience, Specialty, AttentionType, Contract}

// DefaultCatalog returns the descriptors of the hospital deployment
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(
		&Descriptor{
			Type:            Patient,
			Partitioning:    Sharded,
			View:            "vista_paciente",
			OwnerColumn:     "id_hospital",
			IDColumn:        "id_paciente",
			Columns:         []string{"id_hospital", "id_paciente", "nombre", "apellido", "direccion", "fecha_nacimiento", "sexo", "telefono"},
			SearchColumns:   []string{"nombre", "apellido"},
			SearchIDColumns: []string{"id_paciente"},
			OrderBy:         []string{"id_paciente"},
			Procedures:      Procedures{Create: "sp_create_paciente", Update: "sp_update_paciente", Delete: "sp_delete_paciente"},
			Allocated:       true,
		},
		&Descriptor{
			Type:            MedicalStaff,
			Partitioning:    Sharded,
			View:            "vista_inf_personal",
			OwnerColumn:     "id_hospital",
			IDColumn:        "id_personal",
			Columns:         []string{"id_hospital", "id_personal", "id_especialidad", "nombre", "apellido", "telefono"},
			SearchColumns:   []string{"nombre", "apellido"},
			SearchIDColumns: []string{"id_personal"},
			OrderBy:         []string{"id_personal"},
			Procedures:      Procedures{Create: "sp_create_personalmedico", Update: "sp_update_personalmedico", Delete: "sp_delete_personalmedico"},
			Allocated:       true,
		},
		&Descriptor{
			Type:            Encounter,
			Partitioning:    Sharded,
			View:            "vista_atencion_medica",
			OwnerColumn:     "id_hospital",
			IDColumn:        "id_atencion",
			Columns:         []string{"id_hospital", "id_atencion", "id_paciente", "id_personal", "id_tipo", "fecha", "diagnostico", "descripcion", "tratamiento"},
			SearchColumns:   []string{"diagnostico", "descripcion", "tratamiento"},
			SearchIDColumns: []string{"id_atencion", "id_paciente", "id_personal"},
			OrderBy:         []string{"id_atencion"},
			Procedures:      Procedures{Create: "sp_create_atencionmedica", Update: "sp_update_atencionmedica", Delete: "sp_delete_atencionmedica"},
			Allocated:       true,
		},
		&Descriptor{
			Type:            Experience,
			Partitioning:    Sharded,
			View:            "vista_experiencia",
			OwnerColumn:     "id_hospital",
			IDColumn:        "id_personal",
			Columns:         []string{"id_hospital", "id_personal", "cargo", "anios_exp"},
			SearchColumns:   []string{"cargo"},
			SearchIDColumns: []string{"id_personal"},
			OrderBy:         []string{"id_personal"},
			Procedures:      Procedures{Create: "sp_create_experiencia", Update: "sp_update_experiencia", Delete: "sp_delete_experiencia"},
		},
		&Descriptor{
			Type:            Specialty,
			Partitioning:    Centralized,
			View:            "especialidad",
			IDColumn:        "id_especialidad",
			Columns:         []string{"id_especialidad", "area"},
			SearchColumns:   []string{"area"},
			SearchIDColumns: []string{"id_especialidad"},
			OrderBy:         []string{"id_especialidad"},
			Procedures:      Procedures{Create: "sp_create_especialidad", Update: "sp_update_especialidad", Delete: "sp_delete_especialidad"},
		},
		&Descriptor{
			Type:            AttentionType,
			Partitioning:    Centralized,
			View:            "tipo_atencion",
			IDColumn:        "id_tipo",
			Columns:         []string{"id_tipo", "tipo"},
			SearchColumns:   []string{"tipo"},
			SearchIDColumns: []string{"id_tipo"},
			OrderBy:         []string{"id_tipo"},
			Procedures:      Procedures{Create: "sp_create_tipoatencion", Update: "sp_update_tipoatencion", Delete: "sp_delete_tipoatencion"},
		},
		&Descriptor{
			Type:            Contract,
			Partitioning:    MasterHosted,
			View:            "contratos",
			OwnerColumn:     "id_hospital",
			IDColumn:        "id_personal",
			Columns:         []string{"id_hospital", "id_personal", "salario", "fecha_contrato"},
			SearchIDColumns: []string{"id_hospital", "id_personal", "salario"},
			OrderBy:         []string{"id_hospital", "id_personal"},
			Procedures:      Procedures{Create: "crearcontrato", Update: "sp_update_contrato", Delete: "sp_delete_contrato"},
		},
	)
	if err != nil {
		panic(err)
	}
	return catalog
}
