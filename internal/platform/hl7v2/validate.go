package hl7v2

// Severity classifies a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is a single validation issue with a human-readable description.
type Finding struct {
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// ValidationResult is the outcome of validating a message. Valid is true iff
// no finding carries error severity.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Findings []Finding `json:"errors"`
}

// requiredSegments lists the minimal segment set per recognized message type.
// Types outside this map are accepted without type-specific checks: HL7
// deployments routinely extend the standard, so unknown is not invalid.
var requiredSegments = map[string][]string{
	"ADT": {"PID"},
	"ORU": {"OBR", "OBX"},
	"ORM": {"PID", "ORC", "OBR"},
	"SIU": {"SCH", "PID"},
}

// Validate applies the structural rules to a message and reports every
// issue found. It never fails: callers that need strict rejection inspect
// Valid, callers that only need best-effort structure can ignore the result.
// Validation is pure; the same message always yields the same result.
func Validate(msg *Message) ValidationResult {
	var findings []Finding

	if msg == nil || len(msg.Segments) == 0 {
		findings = append(findings, Finding{
			Severity:    SeverityError,
			Description: "message has no segments",
		})
		return ValidationResult{Valid: false, Findings: findings}
	}

	if msg.Segments[0].Name != "MSH" {
		findings = append(findings, Finding{
			Severity:    SeverityError,
			Description: "first segment must be MSH, got " + msg.Segments[0].Name,
		})
	}

	findings = append(findings, checkRequiredSegments(msg)...)
	findings = append(findings, checkFieldPresence(msg)...)

	valid := true
	for _, f := range findings {
		if f.Severity == SeverityError {
			valid = false
			break
		}
	}
	return ValidationResult{Valid: valid, Findings: findings}
}

// checkRequiredSegments verifies the per-type minimal segment set.
func checkRequiredSegments(msg *Message) []Finding {
	required, known := requiredSegments[msg.Type]
	if !known {
		return nil
	}

	var findings []Finding
	for _, name := range required {
		if msg.GetSegment(name) == nil {
			findings = append(findings, Finding{
				Severity:    SeverityError,
				Description: msg.Type + " message is missing required segment " + name,
			})
		}
	}
	return findings
}

// checkFieldPresence applies the minimal field-count rules: MSH and PID must
// carry at least one field, and an unparseable MSH-7 is reported as a warning
// since the parser substitutes the zero-time sentinel instead of failing.
func checkFieldPresence(msg *Message) []Finding {
	var findings []Finding

	if msh := msg.GetSegment("MSH"); msh != nil {
		if len(msh.Fields) == 0 {
			findings = append(findings, Finding{
				Severity:    SeverityError,
				Description: "MSH segment has no fields",
			})
		} else if ts := msh.GetField(7); ts != "" && msg.Timestamp.IsZero() {
			findings = append(findings, Finding{
				Severity:    SeverityWarning,
				Description: "MSH-7 timestamp could not be parsed: " + ts,
			})
		}
	}

	if pid := msg.GetSegment("PID"); pid != nil && len(pid.Fields) == 0 {
		findings = append(findings, Finding{
			Severity:    SeverityError,
			Description: "PID segment has no fields",
		})
	}

	return findings
}
