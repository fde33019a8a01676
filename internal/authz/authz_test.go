package authz

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return tok
}

func TestFromAPIGWv2(t *testing.T) {
	withJWT := events.APIGatewayV2HTTPRequest{}
	withJWT.RequestContext.Authorizer = &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
		JWT: &events.APIGatewayV2HTTPRequestContextAuthorizerJWTDescription{
			Claims: map[string]string{"sub": "abc-123", "email": "rev@example.com"},
		},
	}

	withLambda := events.APIGatewayV2HTTPRequest{}
	withLambda.RequestContext.Authorizer = &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
		Lambda: map[string]interface{}{"sub": "lambda-sub"},
	}

	tests := []struct {
		name      string
		req       events.APIGatewayV2HTTPRequest
		devBypass bool
		want      string
		wantErr   bool
	}{
		{name: "jwt authorizer prefers email", req: withJWT, want: "rev@example.com"},
		{name: "lambda authorizer", req: withLambda, want: "lambda-sub"},
		{name: "bearer header", req: events.APIGatewayV2HTTPRequest{
			Headers: map[string]string{"authorization": "Bearer " + signed(t, jwt.MapClaims{"sub": "tok-sub"})},
		}, want: "tok-sub"},
		{name: "dev bypass", req: events.APIGatewayV2HTTPRequest{
			Headers: map[string]string{"X-User-Sub": "dev"},
		}, devBypass: true, want: "dev"},
		{name: "bypass header ignored when disabled", req: events.APIGatewayV2HTTPRequest{
			Headers: map[string]string{"X-User-Sub": "dev"},
		}, wantErr: true},
		{name: "garbage token", req: events.APIGatewayV2HTTPRequest{
			Headers: map[string]string{"Authorization": "Bearer nope"},
		}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAPIGWv2(tt.req, tt.devBypass)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
