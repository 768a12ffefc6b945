package httpclient

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfarer/internal/logging"
)

func TestReadAllWithLimit(t *testing.T) {
	payload := []byte("hello")

	got, err := ReadAllWithLimit(bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = ReadAllWithLimit(bytes.NewReader(payload), 2)
	require.Error(t, err)
	assert.True(t, IsResponseTooLarge(err))

	got, err = ReadAllWithLimit(bytes.NewReader(payload), 0)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDecodeJSON(t *testing.T) {
	var out struct {
		Temp float64 `json:"temp"`
	}
	require.NoError(t, DecodeJSON(strings.NewReader(`{"temp": 12.5}`), 1024, &out))
	assert.Equal(t, 12.5, out.Temp)

	assert.Error(t, DecodeJSON(strings.NewReader(`{"temp":`), 1024, &out))
}

func TestClientSetsUserAgent(t *testing.T) {
	var seen string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := New(time.Second, logging.Nop()).Get(srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, userAgent, seen)
}
