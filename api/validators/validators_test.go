package validators

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/fuelpass/fuelpass-backend/pkg/errors"
)

type samplePayload struct {
	Period  string `json:"period" validate:"required,len=7"`
	Tickets int    `json:"tickets" validate:"omitempty,min=1,max=100"`
}

func bodyRequest(payload string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(payload)))
}

func TestDecodeJSONBodySuccess(t *testing.T) {
	var dest samplePayload
	err := DecodeJSONBody(bodyRequest(`{"period":"2026-09","tickets":3}`), &dest)
	require.NoError(t, err)
	assert.Equal(t, "2026-09", dest.Period)
	assert.Equal(t, 3, dest.Tickets)
}

func TestDecodeJSONBodyRejectsMalformedJSON(t *testing.T) {
	var dest samplePayload
	err := DecodeJSONBody(bodyRequest(`{"period":`), &dest)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var dest samplePayload
	err := DecodeJSONBody(bodyRequest(`{"period":"2026-09","surprise":true}`), &dest)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	var dest samplePayload
	err := DecodeJSONBody(bodyRequest(`{"tickets":500}`), &dest)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok, "details should be a field->message map")
	assert.Contains(t, details, "period")
	assert.Contains(t, details, "tickets")
	assert.Equal(t, "is required", details["period"])
	assert.Equal(t, "must be at most 100", details["tickets"])
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=25", nil)
	got, err := ParseQueryInt(req, "limit", 50, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, got)
}

func TestParseQueryIntDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	got, err := ParseQueryInt(req, "limit", 50, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 50, got)
}

func TestParseQueryIntRejectsNonNumeric(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=ten", nil)
	_, err := ParseQueryInt(req, "limit", 50, 1, 100)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestParseQueryIntRejectsOutOfRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=1000", nil)
	_, err := ParseQueryInt(req, "limit", 50, 1, 100)
	require.Error(t, err)
}
