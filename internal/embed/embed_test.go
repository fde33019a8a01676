package embed

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvoke struct {
	in    *bedrockruntime.InvokeModelInput
	body  string
	err   error
	calls int
}

func (f *fakeInvoke) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.calls++
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestEmbed(t *testing.T) {
	api := &fakeInvoke{body: `{"embedding":[0.1,-0.2,0.3],"inputTextTokenCount":4}`}
	v := New(api, "amazon.titan-embed-text-v1", 0, nil).Embed(context.Background(), "Provider: Dr. X")
	assert.Equal(t, []float64{0.1, -0.2, 0.3}, v)
	assert.Equal(t, "amazon.titan-embed-text-v1", *api.in.ModelId)
	assert.JSONEq(t, `{"inputText":"Provider: Dr. X"}`, string(api.in.Body))
}

func TestEmbedTruncates(t *testing.T) {
	api := &fakeInvoke{body: `{"embedding":[1]}`}
	New(api, "m", 5, nil).Embed(context.Background(), "ééééééééé")

	var req titanEmbedRequest
	require.NoError(t, json.Unmarshal(api.in.Body, &req))
	assert.Equal(t, "ééééé", req.InputText)
}

func TestEmbedDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name string
		api  *fakeInvoke
	}{
		{name: "transport error", api: &fakeInvoke{err: errors.New("ModelTimeoutException")}},
		{name: "bad json", api: &fakeInvoke{body: "<html>"}},
		{name: "empty vector", api: &fakeInvoke{body: `{"embedding":[]}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New(tt.api, "m", 0, nil).Embed(context.Background(), "text")
			assert.NotNil(t, v)
			assert.Empty(t, v)
		})
	}
}

func TestEmbedEmptyTextSkipsCall(t *testing.T) {
	api := &fakeInvoke{}
	v := New(api, "m", 0, nil).Embed(context.Background(), "")
	assert.Empty(t, v)
	assert.Zero(t, api.calls)
}
