package access

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Signer computes the timestamp/signature query parameters the
// access-manager endpoint requires for a signed request, spec.md §6:
// "Signed requests must include a timestamp query parameter and a
// signature query parameter of the form v2.<base64url> computed over
// the canonical request."
//
// The canonical request is METHOD\nPUBLISH_KEY\nPATH\nSORTED_QUERY\nBODY,
// HMAC-SHA256'd with the secret key and base64url-encoded without
// padding.
type Signer struct {
	PublishKey string
	SecretKey  string

	// now is overridden in tests; production code leaves it nil and
	// falls back to time.Now.
	now func() time.Time
}

// NewSigner builds a Signer for the given publish/secret key pair.
func NewSigner(publishKey, secretKey string) *Signer {
	return &Signer{PublishKey: publishKey, SecretKey: secretKey}
}

func (s *Signer) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Sign returns the timestamp and signature query parameters to attach
// to method/path/query/body. query is the request's query parameters
// before timestamp/signature are added; Sign does not mutate it.
func (s *Signer) Sign(method, path string, query map[string]string, body []byte) (timestamp, signature string) {
	ts := strconv.FormatInt(s.clock().Unix(), 10)

	full := make(map[string]string, len(query)+1)
	for k, v := range query {
		full[k] = v
	}
	full["timestamp"] = ts

	canonical := strings.Join([]string{
		strings.ToUpper(method),
		s.PublishKey,
		path,
		sortedQueryString(full),
		string(body),
	}, "\n")

	mac := hmac.New(sha256.New, []byte(s.SecretKey))
	mac.Write([]byte(canonical))
	sig := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(mac.Sum(nil))

	return ts, fmt.Sprintf("v2.%s", sig)
}

// sortedQueryString renders query as "k1=v1&k2=v2&..." with keys in
// ascending lexical order, the canonical form the signature is
// computed over.
func sortedQueryString(query map[string]string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+query[k])
	}
	return strings.Join(parts, "&")
}
