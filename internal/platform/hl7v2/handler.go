package hl7v2

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler provides HTTP endpoints for HL7v2 message parsing, validation, and
// acknowledgment generation.
type Handler struct{}

// NewHandler creates a new HL7v2 handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes registers HL7v2 endpoints on the provided route group.
//
//	POST /hl7v2/parse       - Parse HL7v2 message to JSON
//	POST /hl7v2/validate    - Validate HL7v2 message structure
//	POST /hl7v2/ack         - Generate an acknowledgment for a message
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/hl7v2/parse", h.ParseMessage)
	g.POST("/hl7v2/validate", h.ValidateMessage)
	g.POST("/hl7v2/ack", h.Acknowledge)
}

// segmentJSON is the JSON representation of a parsed segment.
type segmentJSON struct {
	Name   string      `json:"name"`
	Fields []fieldJSON `json:"fields"`
}

// fieldJSON is the JSON representation of a parsed field.
type fieldJSON struct {
	Value   string       `json:"value"`
	Repeats [][][]string `json:"repeats,omitempty"` // repetition > component > subcomponent
}

// ParseMessage handles POST /hl7v2/parse.
// It reads raw HL7v2 from the request body and returns parsed JSON.
func (h *Handler) ParseMessage(c echo.Context) error {
	body, err := readRawMessage(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	msg, err := Parse(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to parse HL7v2 message: " + err.Error(),
		})
	}

	segments := make([]segmentJSON, len(msg.Segments))
	for i, seg := range msg.Segments {
		fields := make([]fieldJSON, len(seg.Fields))
		for j, f := range seg.Fields {
			fj := fieldJSON{Value: f.Value}
			for _, rep := range f.Repeats {
				comps := make([][]string, len(rep.Components))
				for k, comp := range rep.Components {
					comps[k] = comp.Subcomponents
				}
				fj.Repeats = append(fj.Repeats, comps)
			}
			fields[j] = fj
		}
		segments[i] = segmentJSON{Name: seg.Name, Fields: fields}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"type":         msg.Type,
		"triggerEvent": msg.TriggerEvent,
		"structure":    msg.Structure,
		"controlId":    msg.ControlID,
		"processingId": msg.ProcessingID,
		"version":      msg.Version,
		"timestamp":    msg.Timestamp.Format("2006-01-02T15:04:05Z"),
		"sendingApp":   msg.SendingApp,
		"sendingFac":   msg.SendingFac,
		"receivingApp": msg.ReceivingApp,
		"receivingFac": msg.ReceivingFac,
		"segments":     segments,
	})
}

// ValidateMessage handles POST /hl7v2/validate.
// It parses the raw body and returns the structural validation result.
// A message that cannot be parsed at all is reported as invalid with a
// single error finding rather than a transport error.
func (h *Handler) ValidateMessage(c echo.Context) error {
	body, err := readRawMessage(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	msg, err := Parse(body)
	if err != nil {
		return c.JSON(http.StatusOK, ValidationResult{
			Valid:    false,
			Findings: []Finding{{Severity: SeverityError, Description: err.Error()}},
		})
	}

	return c.JSON(http.StatusOK, Validate(msg))
}

// ackRequest is the JSON request body for acknowledgment generation.
type ackRequest struct {
	Message          string `json:"message"` // raw HL7v2 text
	Code             string `json:"code"`    // AA, AE, AR, CA, CE, CR
	Text             string `json:"text"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
}

// Acknowledge handles POST /hl7v2/ack.
// It accepts a JSON body with the original message and an acknowledgment
// code and returns the rendered ACK as text/plain.
func (h *Handler) Acknowledge(c echo.Context) error {
	var req ackRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body: " + err.Error(),
		})
	}

	code := AckCode(req.Code)
	if !code.IsValid() {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid acknowledgment code: " + req.Code,
		})
	}

	msg, err := Parse([]byte(req.Message))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to parse HL7v2 message: " + err.Error(),
		})
	}

	var cond *ErrorCondition
	if req.ErrorCode != "" || req.ErrorDescription != "" {
		cond = &ErrorCondition{Code: req.ErrorCode, Description: req.ErrorDescription}
	}

	ack := GenerateAck(msg, code, req.Text, cond)
	return c.Blob(http.StatusOK, "text/plain", []byte(ack.String()))
}

// readRawMessage reads a non-empty raw HL7v2 body.
func readRawMessage(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, errors.New("failed to read request body")
	}
	if len(body) == 0 {
		return nil, errors.New("request body is empty")
	}
	return body, nil
}

// decodeJSONBody reads and decodes the JSON request body into the given target.
func decodeJSONBody(c echo.Context, target interface{}) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, target)
}
