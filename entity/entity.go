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
	"fmt"
)

// Type names an entity of the hospital data set
type Type string

const (
	Patient       Type = "patient"
	MedicalStaff  Type = "medical_staff"
	Encounter     Type = "encounter"
	Experience    Type = "experience"
	Specialty     Type = "specialty"
	AttentionType Type = "attention_type"
	Contract      Type = "contract"
)

// String returns the entity name
func (t Type) String() string {
	return string(t)
}

// Partitioning states where rows of an entity type live
type Partitioning int

const (
	// Sharded rows live at their owner site and are keyed by (owner code, local id)
	Sharded Partitioning = iota
	// Centralized rows live at the master; writes are only permitted there
	Centralized
	// MasterHosted rows are keyed like sharded rows but stored at the master
	MasterHosted
)

// String returns the partitioning name
func (p Partitioning) String() string {
	switch p {
	case Sharded:
		return "sharded"
	case Centralized:
		return "centralized"
	case MasterHosted:
		return "master_hosted"
	default:
		return fmt.Sprintf("partitioning(%d)", int(p))
	}
}

// Operation is a write operation on an entity
type Operation string

const (
	Create Operation = "create"
	Update Operation = "update"
	Delete Operation = "delete"
	Read   Operation = "read"
)

// IsWrite reports whether the operation mutates data
func (o Operation) IsWrite() bool {
	return o == Create || o == Update || o == Delete
}

// Key is the composite key of a sharded row or a contract.
// Site is the owner-site code, LocalID the identifier issued from that site's range.
type Key struct {
	Site    int   `json:"id_hospital"`
	LocalID int64 `json:"local_id"`
}

// String returns the key as (site, id)
func (k Key) String() string {
	return fmt.Sprintf("(%d, %d)", k.Site, k.LocalID)
}
