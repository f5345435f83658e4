package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaddleRecognize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Images []string `json:"images"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Images, 1)
		decoded, err := base64.StdEncoding.DecodeString(body.Images[0])
		require.NoError(t, err)
		assert.Equal(t, "png-bytes", string(decoded))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[[{"text":"ISIC®","confidence":0.9},{"text":"S 420 123 456 789 A!","confidence":0.7}]]}`))
	}))
	defer server.Close()

	engine, err := NewPaddleEngineFactory(server.URL, server.Client())(context.Background(), nil)
	require.NoError(t, err)
	defer engine.Close()

	rec, err := engine.Recognize(context.Background(), []byte("png-bytes"), nil)
	require.NoError(t, err)
	assert.Equal(t, "ISIC\nS 420 123 456 789 A\n", rec.Text)
	assert.InDelta(t, 80.0, rec.Confidence, 0.001)
}

func TestPaddleRecognizeNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	engine, err := NewPaddleEngineFactory(server.URL, nil)(context.Background(), nil)
	require.NoError(t, err)

	_, err = engine.Recognize(context.Background(), []byte("x"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestPaddleFactoryRequiresURL(t *testing.T) {
	_, err := NewPaddleEngineFactory("", nil)(context.Background(), nil)
	assert.Error(t, err)
}
