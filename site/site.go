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

	"github.com/clinicnet/shardroute/internal/validation"
)

// ID names a database site, e.g. "quito"
type ID string

// String returns the site name
func (id ID) String() string {
	return string(id)
}

// Connection holds the database coordinates of a site
type Connection struct {
	// Host is the database host
	Host string
	// Port is the database port
	Port int
	// Database is the database name
	Database string
	// User is the database user used to connect
	User string
	// Password is the database password
	Password string
	// Schema is the schema holding the local views and procedures
	Schema string
}

// Address returns host:port
func (c Connection) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Site is a configured database site. Sites are read-only after startup.
type Site struct {
	// ID is the site name
	ID ID
	// Code is the owner-site identifier recorded on the rows created at this site
	Code int
	// Link is the cross-site reference other sites use to reach this site's
	// procedures and tables, e.g. a linked server or foreign schema prefix
	Link string
	// DB holds the connection coordinates
	DB Connection
}

var _ validation.Validator = (*Site)(nil)

// Validate implements validation.Validator.
func (s *Site) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("ID", string(s.ID))).
		AddAssertion(s.Code > 0, fmt.Sprintf("site %s: Code must be greater than 0", s.ID)).
		AddValidator(validation.NewEmptyStringValidator("Link", s.Link)).
		Validate()
}

// String returns the site name
func (s *Site) String() string {
	return s.ID.String()
}

// Qualify prefixes name with the site's cross-site reference
func (s *Site) Qualify(name string) string {
	if s.Link == "" {
		return name
	}
	return s.Link + "." + name
}
