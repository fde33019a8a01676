// Package httpx provides helper functions for creating HTTP API responses.
package httpx

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// JSON creates a JSON HTTP response with the given status code and value.
func JSON(status int, v any) (events.APIGatewayV2HTTPResponse, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Error(http.StatusInternalServerError, "encode response")
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(b),
	}, nil
}

// Error creates a JSON HTTP error response with the given status code and message.
func Error(status int, msg string) (events.APIGatewayV2HTTPResponse, error) {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       `{"error":` + quote(msg) + `}`,
	}, nil
}

// Binary creates a base64-encoded response for a file download. A non-empty
// filename adds an attachment Content-Disposition.
func Binary(contentType, filename string, data []byte) (events.APIGatewayV2HTTPResponse, error) {
	h := map[string]string{"Content-Type": contentType}
	if filename != "" {
		h["Content-Disposition"] = `attachment; filename="` + filename + `"`
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode:      http.StatusOK,
		Headers:         h,
		Body:            base64.StdEncoding.EncodeToString(data),
		IsBase64Encoded: true,
	}, nil
}

// DecodeBody unmarshals a JSON request body, decoding base64 bodies first.
func DecodeBody(req events.APIGatewayV2HTTPRequest, v any) error {
	body := req.Body
	if req.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return err
		}
		body = string(b)
	}
	if strings.TrimSpace(body) == "" {
		return errors.New("empty body")
	}
	return json.Unmarshal([]byte(body), v)
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
