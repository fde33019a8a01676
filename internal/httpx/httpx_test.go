package httpx

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	resp, err := JSON(http.StatusCreated, map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.JSONEq(t, `{"n":1}`, resp.Body)

	resp, _ = JSON(http.StatusOK, make(chan int))
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestError(t *testing.T) {
	resp, _ := Error(http.StatusBadRequest, `bad "status"`)
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	assert.Equal(t, `bad "status"`, body["error"])
}

func TestBinary(t *testing.T) {
	resp, _ := Binary("application/pdf", "prior_auth_f1.pdf", []byte("%PDF-1.3"))
	assert.True(t, resp.IsBase64Encoded)
	assert.Equal(t, `attachment; filename="prior_auth_f1.pdf"`, resp.Headers["Content-Disposition"])
	raw, err := base64.StdEncoding.DecodeString(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(raw))
}

func TestDecodeBody(t *testing.T) {
	var v struct {
		Status string `json:"status"`
	}
	require.NoError(t, DecodeBody(events.APIGatewayV2HTTPRequest{Body: `{"status":"approved"}`}, &v))
	assert.Equal(t, "approved", v.Status)

	enc := base64.StdEncoding.EncodeToString([]byte(`{"status":"denied"}`))
	require.NoError(t, DecodeBody(events.APIGatewayV2HTTPRequest{Body: enc, IsBase64Encoded: true}, &v))
	assert.Equal(t, "denied", v.Status)

	assert.Error(t, DecodeBody(events.APIGatewayV2HTTPRequest{Body: "  "}, &v))
	assert.Error(t, DecodeBody(events.APIGatewayV2HTTPRequest{Body: "{"}, &v))
}
