package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestWriteErrorEnvelopeShape(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusForbidden, KindSecurityFilter, "Security violation: Model gpt-4 is not allowed")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Equal(t, "Security violation: Model gpt-4 is not allowed", gjson.Get(body, "error.message").String())
	assert.Equal(t, KindSecurityFilter, gjson.Get(body, "error.type").String())
	assert.False(t, gjson.Get(body, "type").Exists())
}
