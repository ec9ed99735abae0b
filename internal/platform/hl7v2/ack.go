package hl7v2

import (
	"strings"
	"time"
)

// AckCode is an HL7 acknowledgment code (HL7 table 0008). Application-level
// codes are used by original-mode acknowledgment, commit-level codes by
// enhanced mode.
type AckCode string

const (
	AckApplicationAccept AckCode = "AA"
	AckApplicationError  AckCode = "AE"
	AckApplicationReject AckCode = "AR"
	AckCommitAccept      AckCode = "CA"
	AckCommitError       AckCode = "CE"
	AckCommitReject      AckCode = "CR"
)

// IsValid reports whether c is one of the defined acknowledgment codes.
func (c AckCode) IsValid() bool {
	switch c {
	case AckApplicationAccept, AckApplicationError, AckApplicationReject,
		AckCommitAccept, AckCommitError, AckCommitReject:
		return true
	}
	return false
}

// ErrorCondition is the optional structured error detail carried in an ERR
// segment of a negative acknowledgment.
type ErrorCondition struct {
	Code        string
	Description string
}

// Acknowledgment is a reply to a received message. It is built once from the
// source message and is immutable afterwards; Encode may be called any number
// of times and always produces the same wire text.
//
// Routing is captured swapped from the source message (the reply goes back to
// the original sender) and the source's control ID and encoding characters
// are echoed, so the sender can correlate the reply and parse it with its own
// delimiter set.
type Acknowledgment struct {
	MessageType  string // always "ACK"
	ControlID    string // MSH-10 of the source message, echoed
	Code         AckCode
	Text         string // optional MSA-3 free text
	Condition    *ErrorCondition
	Version      string
	ProcessingID string
	Timestamp    time.Time
	SendingApp   string
	SendingFac   string
	ReceivingApp string
	ReceivingFac string
	Delimiters   Delimiters
}

// GenerateAck builds an acknowledgment for msg with the given code. The code
// is chosen by the caller; the generator does not infer accept vs. reject.
// text and cond are optional ("" and nil to omit).
func GenerateAck(msg *Message, code AckCode, text string, cond *ErrorCondition) Acknowledgment {
	d := msg.Delimiters
	if d == (Delimiters{}) {
		d = DefaultDelimiters()
	}

	processingID := msg.ProcessingID
	if processingID == "" {
		processingID = "P"
	}

	return Acknowledgment{
		MessageType:  "ACK",
		ControlID:    msg.ControlID,
		Code:         code,
		Text:         text,
		Condition:    cond,
		Version:      msg.Version,
		ProcessingID: processingID,
		Timestamp:    time.Now().UTC(),
		SendingApp:   msg.ReceivingApp,
		SendingFac:   msg.ReceivingFac,
		ReceivingApp: msg.SendingApp,
		ReceivingFac: msg.SendingFac,
		Delimiters:   d,
	}
}

// Encode renders the acknowledgment to wire text with explicit routing:
// an MSH segment, an MSA segment referencing the original control ID, and an
// ERR segment when error detail was supplied.
func (a *Acknowledgment) Encode(sendingApp, sendingFac, receivingApp, receivingFac string) string {
	d := a.Delimiters
	if d == (Delimiters{}) {
		d = DefaultDelimiters()
	}
	fs := string(d.Field)

	msh := strings.Join([]string{
		"MSH" + fs + d.EncodingCharacters(),
		encodeEscapes(sendingApp, d),
		encodeEscapes(sendingFac, d),
		encodeEscapes(receivingApp, d),
		encodeEscapes(receivingFac, d),
		a.Timestamp.Format("20060102150405"),
		"", // MSH-8 security
		a.MessageType,
		encodeEscapes(a.ControlID, d),
		a.ProcessingID,
		a.Version,
	}, fs)

	msa := "MSA" + fs + string(a.Code) + fs + encodeEscapes(a.ControlID, d)
	if a.Text != "" {
		msa += fs + encodeEscapes(a.Text, d)
	}

	segments := []string{msh, msa}
	if a.Condition != nil {
		segments = append(segments, "ERR"+fs+
			encodeEscapes(a.Condition.Code, d)+string(d.Component)+
			encodeEscapes(a.Condition.Description, d))
	}
	return strings.Join(segments, "\r")
}

// String renders the acknowledgment using the routing captured from the
// source message.
func (a *Acknowledgment) String() string {
	return a.Encode(a.SendingApp, a.SendingFac, a.ReceivingApp, a.ReceivingFac)
}
