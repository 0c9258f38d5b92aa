package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"forumshop/internal/apperr"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/crypto/bcrypt"
)

const (
	APIKeyHeader = "X-API-KEY"
	// APIKeyQuery carries the key on websocket handshakes, where browsers
	// cannot set headers.
	APIKeyQuery = "api_key"
)

const (
	verifiedKeysSize = 256
	verifiedKeysTTL  = 10 * time.Minute
)

// KeyVerifier checks API keys against a plaintext secret or a bcrypt hash.
// bcrypt results are cached by key digest so repeated calls skip the hash.
type KeyVerifier struct {
	plain    []byte
	hash     []byte
	verified *expirable.LRU[string, bool]
}

func NewKeyVerifier(plain, hash string) *KeyVerifier {
	v := &KeyVerifier{
		verified: expirable.NewLRU[string, bool](verifiedKeysSize, nil, verifiedKeysTTL),
	}
	if plain != "" {
		v.plain = []byte(plain)
	}
	if hash != "" {
		v.hash = []byte(hash)
	}
	return v
}

func (v *KeyVerifier) Verify(key string) bool {
	if key == "" {
		return false
	}
	if v.plain != nil && subtle.ConstantTimeCompare([]byte(key), v.plain) == 1 {
		return true
	}
	if v.hash == nil {
		return false
	}
	digest := sha256.Sum256([]byte(key))
	cacheKey := hex.EncodeToString(digest[:])
	if ok, cached := v.verified.Get(cacheKey); cached {
		return ok
	}
	ok := bcrypt.CompareHashAndPassword(v.hash, []byte(key)) == nil
	v.verified.Add(cacheKey, ok)
	return ok
}

// APIKey rejects requests whose X-API-KEY header does not verify.
func APIKey(verifier *KeyVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" && websocket.IsWebSocketUpgrade(r) {
				key = r.URL.Query().Get(APIKeyQuery)
			}
			if !verifier.Verify(key) {
				writeError(w, http.StatusForbidden, apperr.ErrUnauthorized.Message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
