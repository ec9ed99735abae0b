package hl7v2

import (
	"fmt"
	"strings"
	"time"
)

// Message represents a parsed HL7v2 message. The MSH routing metadata is
// lifted into typed fields; the full segment tree (MSH included) is kept in
// Segments in wire order. Timestamp is the zero time.Time when MSH-7 is
// absent or unparseable; the parse still succeeds and the validator reports
// the bad date as a finding.
type Message struct {
	Type         string    // MSH-9.1 (e.g. "ADT")
	TriggerEvent string    // MSH-9.2 (e.g. "A01")
	Structure    string    // MSH-9.3, or derived "ADT_A01"
	ControlID    string    // MSH-10
	ProcessingID string    // MSH-11
	Version      string    // MSH-12 (e.g. "2.5.1")
	Timestamp    time.Time // MSH-7
	SendingApp   string    // MSH-3
	SendingFac   string    // MSH-4
	ReceivingApp string    // MSH-5
	ReceivingFac string    // MSH-6
	Delimiters   Delimiters
	Segments     []Segment
	Raw          string // original wire text, retained for audit
}

// Segment represents a single HL7v2 segment.
type Segment struct {
	Name   string // e.g. "MSH", "PID", "OBR", "OBX"
	Fields []Field
}

// Field represents a field which can repeat (~). Value is the escape-decoded
// text of the whole field; Repeats always holds at least one entry. Empty
// fields are kept so that positional indexing stays correct.
type Field struct {
	Value   string
	Repeats []FieldValue
}

// FieldValue is one repetition of a field, split into components (^).
type FieldValue struct {
	Value      string
	Components []Component
}

// Component is one component of a field value, split into subcomponents (&).
// Value is the first subcomponent.
type Component struct {
	Value         string
	Subcomponents []string
}

// Parse parses raw HL7v2 message bytes into a structured Message.
// It supports \r, \n, and \r\n line endings for segment separation and reads
// the delimiter set from the MSH header itself.
//
// Parse is total for any input beginning with a recognizable MSH segment:
// ragged segments, missing fields, and bad dates never fail the parse. They
// are surfaced by Validate instead.
func Parse(raw []byte) (*Message, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("hl7v2: HL7 message parsing failed: message is empty")
	}

	text := string(raw)

	// Normalize line endings: replace \r\n with \r, then replace \n with \r.
	normalized := strings.ReplaceAll(text, "\r\n", "\r")
	normalized = strings.ReplaceAll(normalized, "\n", "\r")

	var segmentLines []string
	for _, line := range strings.Split(normalized, "\r") {
		line = strings.TrimSpace(line)
		if line != "" {
			segmentLines = append(segmentLines, line)
		}
	}

	if len(segmentLines) == 0 {
		return nil, fmt.Errorf("hl7v2: HL7 message parsing failed: no segments found")
	}

	delims, err := resolveDelimiters(segmentLines[0])
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Delimiters: delims,
		Raw:        text,
	}

	for _, line := range segmentLines {
		msg.Segments = append(msg.Segments, parseSegment(line, delims))
	}

	msg.extractMSHFields()

	return msg, nil
}

// parseSegment parses a single segment line into a Segment struct.
func parseSegment(line string, d Delimiters) Segment {
	seg := Segment{}

	// MSH is special: the field separator is MSH-1 itself and the encoding
	// characters are MSH-2. Both are stored literally, never escape-decoded,
	// since they define the escape machinery.
	if strings.HasPrefix(line, "MSH") {
		seg.Name = "MSH"
		if len(line) < 4 {
			return seg
		}

		fieldSep := string(d.Field)
		seg.Fields = append(seg.Fields, literalField(fieldSep)) // MSH-1

		parts := strings.Split(line[4:], fieldSep)
		for i, part := range parts {
			if i == 0 {
				seg.Fields = append(seg.Fields, literalField(part)) // MSH-2
				continue
			}
			seg.Fields = append(seg.Fields, parseField(part, d))
		}
		return seg
	}

	parts := strings.Split(line, string(d.Field))
	seg.Name = parts[0]
	for _, f := range parts[1:] {
		seg.Fields = append(seg.Fields, parseField(f, d))
	}
	return seg
}

// parseField splits a field token into repetitions, components, and
// subcomponents, escape-decoding each leaf value.
func parseField(raw string, d Delimiters) Field {
	f := Field{Value: decodeEscapes(raw, d)}

	for _, rep := range strings.Split(raw, string(d.Repetition)) {
		fv := FieldValue{Value: decodeEscapes(rep, d)}
		for _, comp := range strings.Split(rep, string(d.Component)) {
			c := Component{}
			for _, sub := range strings.Split(comp, string(d.Subcomponent)) {
				c.Subcomponents = append(c.Subcomponents, decodeEscapes(sub, d))
			}
			c.Value = c.Subcomponents[0]
			fv.Components = append(fv.Components, c)
		}
		f.Repeats = append(f.Repeats, fv)
	}
	return f
}

// literalField builds a Field whose value carries no structure (MSH-1/MSH-2).
func literalField(v string) Field {
	return Field{
		Value: v,
		Repeats: []FieldValue{{
			Value:      v,
			Components: []Component{{Value: v, Subcomponents: []string{v}}},
		}},
	}
}

// extractMSHFields lifts the commonly used MSH fields into the Message
// struct. Every lookup degrades to the empty string; a short MSH never
// aborts the build.
func (m *Message) extractMSHFields() {
	msh := m.GetSegment("MSH")
	if msh == nil {
		return
	}

	m.SendingApp = msh.GetField(3)
	m.SendingFac = msh.GetField(4)
	m.ReceivingApp = msh.GetField(5)
	m.ReceivingFac = msh.GetField(6)

	if ts := msh.GetField(7); ts != "" {
		if t, err := parseHL7Timestamp(ts); err == nil {
			m.Timestamp = t
		}
	}

	m.Type = msh.GetComponent(9, 1)
	m.TriggerEvent = msh.GetComponent(9, 2)
	m.Structure = msh.GetComponent(9, 3)
	if m.Structure == "" && m.Type != "" && m.TriggerEvent != "" {
		m.Structure = m.Type + "_" + m.TriggerEvent
	}

	m.ControlID = msh.GetField(10)
	m.ProcessingID = msh.GetField(11)
	m.Version = msh.GetField(12)
}

// parseHL7Timestamp parses an HL7v2 timestamp string (YYYYMMDDHHmmss,
// YYYYMMDDHHmm, or YYYYMMDD).
func parseHL7Timestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case len(s) >= 14:
		return time.Parse("20060102150405", s[:14])
	case len(s) >= 12:
		return time.Parse("200601021504", s[:12])
	case len(s) >= 8:
		return time.Parse("20060102", s[:8])
	default:
		return time.Time{}, fmt.Errorf("hl7v2: unrecognized timestamp format: %q", s)
	}
}

// GetSegment returns the first segment with the given name, or nil if not found.
func (m *Message) GetSegment(name string) *Segment {
	for i := range m.Segments {
		if m.Segments[i].Name == name {
			return &m.Segments[i]
		}
	}
	return nil
}

// GetSegments returns all segments with the given name, in wire order.
func (m *Message) GetSegments(name string) []Segment {
	var result []Segment
	for _, seg := range m.Segments {
		if seg.Name == name {
			result = append(result, seg)
		}
	}
	return result
}

// field returns the Field at a 1-based index, or nil when out of range.
// For MSH, Fields[0] is MSH-1 (the field separator); for every other segment
// Fields[0] is field 1.
func (s *Segment) field(index int) *Field {
	idx := index - 1
	if idx < 0 || idx >= len(s.Fields) {
		return nil
	}
	return &s.Fields[idx]
}

// GetField returns the value of a field by 1-based index, or "" when absent.
func (s *Segment) GetField(index int) string {
	f := s.field(index)
	if f == nil {
		return ""
	}
	return f.Value
}

// GetComponent returns a component value by 1-based field and component
// indices, or "" when absent.
func (s *Segment) GetComponent(fieldIdx, compIdx int) string {
	f := s.field(fieldIdx)
	if f == nil || len(f.Repeats) == 0 {
		return ""
	}
	comps := f.Repeats[0].Components
	ci := compIdx - 1
	if ci < 0 || ci >= len(comps) {
		return ""
	}
	return comps[ci].Value
}

// GetSubcomponent returns a subcomponent value by 1-based field, component,
// and subcomponent indices, or "" when absent.
func (s *Segment) GetSubcomponent(fieldIdx, compIdx, subIdx int) string {
	f := s.field(fieldIdx)
	if f == nil || len(f.Repeats) == 0 {
		return ""
	}
	comps := f.Repeats[0].Components
	ci := compIdx - 1
	if ci < 0 || ci >= len(comps) {
		return ""
	}
	si := subIdx - 1
	if si < 0 || si >= len(comps[ci].Subcomponents) {
		return ""
	}
	return comps[ci].Subcomponents[si]
}

// GetRepetitions returns all repetitions of a field by 1-based index.
func (s *Segment) GetRepetitions(fieldIdx int) []FieldValue {
	f := s.field(fieldIdx)
	if f == nil {
		return nil
	}
	return f.Repeats
}

// PatientID returns PID-3.1 (the first component of the patient identifier field).
func (m *Message) PatientID() string {
	pid := m.GetSegment("PID")
	if pid == nil {
		return ""
	}
	return pid.GetComponent(3, 1)
}

// PatientName returns the family and given name from PID-5 (family^given).
func (m *Message) PatientName() (family, given string) {
	pid := m.GetSegment("PID")
	if pid == nil {
		return "", ""
	}
	return pid.GetComponent(5, 1), pid.GetComponent(5, 2)
}

// DateOfBirth returns PID-7 (date of birth).
func (m *Message) DateOfBirth() string {
	pid := m.GetSegment("PID")
	if pid == nil {
		return ""
	}
	return pid.GetField(7)
}

// Gender returns PID-8 (administrative sex).
func (m *Message) Gender() string {
	pid := m.GetSegment("PID")
	if pid == nil {
		return ""
	}
	return pid.GetField(8)
}
