package geomodel

import "strconv"

// SegmentIndex addresses a segment of a multi-linestring: Part is the
// linestring, Local the segment inside it.
type SegmentIndex struct {
	Part  int
	Local int
}

func (s SegmentIndex) String() string {
	return strconv.Itoa(s.Part) + ":" + strconv.Itoa(s.Local)
}
