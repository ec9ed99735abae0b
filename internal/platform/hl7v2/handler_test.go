package hl7v2

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newHandlerContext(t *testing.T, path, body, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_ParseMessage(t *testing.T) {
	c, rec := newHandlerContext(t, "/hl7v2/parse", sampleADT, "text/plain")

	h := NewHandler()
	if err := h.ParseMessage(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}

	if result["type"] != "ADT" {
		t.Errorf("expected type 'ADT', got %v", result["type"])
	}
	if result["triggerEvent"] != "A01" {
		t.Errorf("expected triggerEvent 'A01', got %v", result["triggerEvent"])
	}
	if result["controlId"] != "MSG00001" {
		t.Errorf("expected controlId 'MSG00001', got %v", result["controlId"])
	}

	segments, ok := result["segments"].([]interface{})
	if !ok || len(segments) != 4 {
		t.Errorf("expected 4 segments, got %v", result["segments"])
	}
}

func TestHandler_ParseMessage_EmptyBody(t *testing.T) {
	c, rec := newHandlerContext(t, "/hl7v2/parse", "", "text/plain")

	h := NewHandler()
	if err := h.ParseMessage(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty body, got %d", rec.Code)
	}
}

func TestHandler_ParseMessage_Invalid(t *testing.T) {
	c, rec := newHandlerContext(t, "/hl7v2/parse", "not hl7", "text/plain")

	h := NewHandler()
	if err := h.ParseMessage(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-HL7 body, got %d", rec.Code)
	}
}

func TestHandler_ValidateMessage_Valid(t *testing.T) {
	c, rec := newHandlerContext(t, "/hl7v2/validate", sampleORU, "text/plain")

	h := NewHandler()
	if err := h.ValidateMessage(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected valid result, findings: %v", result.Findings)
	}
}

func TestHandler_ValidateMessage_Unparseable(t *testing.T) {
	c, rec := newHandlerContext(t, "/hl7v2/validate", "garbage", "text/plain")

	h := NewHandler()
	if err := h.ValidateMessage(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Unparseable input is an invalid-message result, not a transport error.
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var result ValidationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if result.Valid {
		t.Error("expected invalid result for unparseable input")
	}
	if len(result.Findings) == 0 {
		t.Error("expected at least one finding")
	}
}

func TestHandler_Acknowledge(t *testing.T) {
	body, _ := json.Marshal(ackRequest{
		Message: sampleADT,
		Code:    "AA",
		Text:    "ok",
	})
	c, rec := newHandlerContext(t, "/hl7v2/ack", string(body), echo.MIMEApplicationJSON)

	h := NewHandler()
	if err := h.Acknowledge(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	wire := rec.Body.String()
	if !strings.Contains(wire, "MSA|AA|MSG00001|ok") {
		t.Errorf("expected MSA segment in response, got %q", wire)
	}
}

func TestHandler_Acknowledge_BadCode(t *testing.T) {
	body, _ := json.Marshal(ackRequest{Message: sampleADT, Code: "ZZ"})
	c, rec := newHandlerContext(t, "/hl7v2/ack", string(body), echo.MIMEApplicationJSON)

	h := NewHandler()
	if err := h.Acknowledge(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid ack code, got %d", rec.Code)
	}
}

func TestHandler_Acknowledge_WithErrorDetail(t *testing.T) {
	body, _ := json.Marshal(ackRequest{
		Message:          sampleADT,
		Code:             "AE",
		ErrorCode:        "100",
		ErrorDescription: "Segment sequence error",
	})
	c, rec := newHandlerContext(t, "/hl7v2/ack", string(body), echo.MIMEApplicationJSON)

	h := NewHandler()
	if err := h.Acknowledge(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wire := rec.Body.String()
	if !strings.Contains(wire, "ERR|100^Segment sequence error") {
		t.Errorf("expected ERR segment, got %q", wire)
	}
}
