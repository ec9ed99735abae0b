package hl7v2

import (
	"strings"
)

// EncodeMessage converts a Message back into raw HL7v2 bytes with \r segment
// separators, using the message's own delimiter set. Delimiter characters
// occurring inside values are escape-encoded, so encoding is the exact
// inverse of parsing: re-parsing the output reproduces the same field tree.
func EncodeMessage(msg *Message) []byte {
	d := msg.Delimiters
	if d == (Delimiters{}) {
		d = DefaultDelimiters()
	}

	segments := make([]string, 0, len(msg.Segments))
	for _, seg := range msg.Segments {
		segments = append(segments, encodeSegment(seg, d))
	}
	return []byte(strings.Join(segments, "\r"))
}

// encodeSegment converts a Segment back into its HL7v2 string form.
func encodeSegment(seg Segment, d Delimiters) string {
	fieldSep := string(d.Field)

	if seg.Name == "MSH" {
		// MSH-1 is the field separator itself and MSH-2 the encoding
		// characters; both go on the wire verbatim.
		if len(seg.Fields) < 2 {
			return "MSH" + fieldSep
		}
		parts := make([]string, 0, len(seg.Fields)-1)
		parts = append(parts, seg.Fields[1].Value)
		for _, f := range seg.Fields[2:] {
			parts = append(parts, encodeField(f, d))
		}
		return "MSH" + fieldSep + strings.Join(parts, fieldSep)
	}

	parts := make([]string, len(seg.Fields))
	for i, f := range seg.Fields {
		parts[i] = encodeField(f, d)
	}
	return seg.Name + fieldSep + strings.Join(parts, fieldSep)
}

// encodeField renders a field from its repetition/component/subcomponent
// tree, escaping each leaf value.
func encodeField(f Field, d Delimiters) string {
	if len(f.Repeats) == 0 {
		return encodeEscapes(f.Value, d)
	}

	reps := make([]string, len(f.Repeats))
	for i, rep := range f.Repeats {
		comps := make([]string, len(rep.Components))
		for j, c := range rep.Components {
			subs := make([]string, len(c.Subcomponents))
			for k, sub := range c.Subcomponents {
				subs[k] = encodeEscapes(sub, d)
			}
			comps[j] = strings.Join(subs, string(d.Subcomponent))
		}
		reps[i] = strings.Join(comps, string(d.Component))
	}
	return strings.Join(reps, string(d.Repetition))
}
