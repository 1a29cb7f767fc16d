package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/backend/internal/interfaces/http/dto"
)

// PerformRequest drives a full request through an engine. A non-nil
// body is JSON-encoded and the content type set accordingly.
func PerformRequest(t *testing.T, engine *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err, "request body encoding failed")
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// DecodeEnvelope parses the standard response wrapper
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "response envelope decoding failed")
	return resp
}

// DecodeData parses the response envelope's data field into out
func DecodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, "expected a success envelope")
	require.NoError(t, json.Unmarshal(envelope.Data, out), "data field decoding failed")
}

// AssertSuccess verifies the envelope reports success with no error
func AssertSuccess(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()

	resp := DecodeEnvelope(t, w)
	assert.True(t, resp.Success, "expected success envelope")
	assert.Nil(t, resp.Error, "expected no error in envelope")
}

// AssertErrorCode verifies the envelope carries the given error code
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantCode string) {
	t.Helper()

	resp := DecodeEnvelope(t, w)
	assert.False(t, resp.Success, "expected error envelope")
	require.NotNil(t, resp.Error, "expected error info in envelope")
	assert.Equal(t, wantCode, resp.Error.Code)
}

// HTTPTestCase describes one table-driven handler test
type HTTPTestCase struct {
	Name       string
	Method     string
	Path       string
	Body       interface{}
	Headers    map[string]string
	WantStatus int
	WantError  string
	Setup      func(t *testing.T)
	Validate   func(t *testing.T, w *httptest.ResponseRecorder)
}

// RunHTTPTestCases executes cases against the engine
func RunHTTPTestCases(t *testing.T, engine *gin.Engine, cases []HTTPTestCase) {
	t.Helper()

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			if tc.Setup != nil {
				tc.Setup(t)
			}

			method := tc.Method
			if method == "" {
				method = http.MethodGet
			}
			w := PerformRequest(t, engine, method, tc.Path, tc.Body, tc.Headers)

			if tc.WantStatus != 0 {
				assert.Equal(t, tc.WantStatus, w.Code, "unexpected status code")
			}
			if tc.WantError != "" {
				AssertErrorCode(t, w, tc.WantError)
			}
			if tc.Validate != nil {
				tc.Validate(t, w)
			}
		})
	}
}
