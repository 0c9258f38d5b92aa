package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"forumshop/internal/apperr"
	"forumshop/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func newClient(url string) *Client {
	return New(config.ImageHostConfig{URL: url, Secret: "test-secret", Issuer: "forumshop", MaxSize: 1024}, nil)
}

func TestUploadPostsSignedMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload", r.URL.Path)
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return []byte("test-secret"), nil })
		require.NoError(t, err)
		assert.Equal(t, "forumshop", claims.Issuer)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, claims.Subject, header.Filename)
		assert.True(t, strings.HasSuffix(header.Filename, ".png"))
		data, _ := io.ReadAll(file)
		assert.Equal(t, pngHeader, data)

		_ = json.NewEncoder(w).Encode(map[string]string{"url": "https://img.example/" + header.Filename})
	}))
	defer server.Close()

	url, err := newClient(server.URL).Upload(context.Background(), bytes.NewReader(pngHeader))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://img.example/"))
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	_, err := newClient("http://unused").Upload(context.Background(), strings.NewReader("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	big := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 2048)...)
	_, err := newClient("http://unused").Upload(context.Background(), bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	_, err := newClient("http://unused").Upload(context.Background(), bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestUploadUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newClient(server.URL).Upload(context.Background(), bytes.NewReader(pngHeader))
	assert.ErrorIs(t, err, apperr.ErrUpstream)
	assert.Equal(t, http.StatusBadGateway, apperr.KindOf(err).Status())
}
