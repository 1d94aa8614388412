package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"
)

// Signer produces the ACCESS-SIGN value for private Bitget endpoints. The
// signed message is the concatenation of the millisecond timestamp, the
// upper-cased HTTP method, the request path including its canonical query
// string, and the raw JSON body (empty for GET).
type Signer struct {
	secret []byte
}

// NewSigner creates a signer for the given API secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the base64-encoded HMAC-SHA256 of the request description.
func (s *Signer) Sign(timestamp, method, requestPath, body string) string {
	message := timestamp + strings.ToUpper(method) + requestPath + body
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// CanonicalQuery renders query parameters in the form that gets signed:
// keys sorted, values URL-encoded, pairs joined with "&" and the whole
// string prefixed with "?". Empty parameters yield an empty string, so a
// bare path signs identically on both sides.
func CanonicalQuery(params url.Values) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, v := range params[k] {
			pairs = append(pairs, k+"="+url.QueryEscape(v))
		}
	}
	return "?" + strings.Join(pairs, "&")
}
