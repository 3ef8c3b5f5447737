package tle

import "github.com/star/skywatch/internal/orbit"

// Record is one satellite's two-line element set plus the propagation handle
// built for it at parse time. The handle is owned by the record and reused
// for every propagation call.
type Record struct {
	ID     string // NORAD catalog id, 1-5 digits, as it appears in line 2
	Name   string
	Line1  string
	Line2  string
	Handle orbit.Handle
}
