package platforms

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// OAuth 1.0a request signing per RFC 5849, needed for the Twitter posting
// endpoint. Only the HMAC-SHA1 method is implemented.

type oauthCredentials struct {
	consumerKey    string
	consumerSecret string
	token          string
	tokenSecret    string
}

// oauthHeader builds the Authorization header value for one request. extra
// holds the query and form parameters that take part in the signature;
// JSON bodies contribute nothing.
func oauthHeader(method, rawURL string, extra map[string]string, creds oauthCredentials, nonce string, timestamp int64) string {
	params := map[string]string{
		"oauth_consumer_key":     creds.consumerKey,
		"oauth_nonce":            nonce,
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        strconv.FormatInt(timestamp, 10),
		"oauth_token":            creds.token,
		"oauth_version":          "1.0",
	}
	params["oauth_signature"] = sign(method, rawURL, params, extra, creds)

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf(`%s="%s"`, percentEncode(key), percentEncode(params[key])))
	}
	return "OAuth " + strings.Join(parts, ", ")
}

// sign computes the HMAC-SHA1 signature over the normalized request.
func sign(method, rawURL string, oauthParams, extra map[string]string, creds oauthCredentials) string {
	type pair struct{ key, value string }
	pairs := make([]pair, 0, len(oauthParams)+len(extra))
	for key, value := range oauthParams {
		pairs = append(pairs, pair{percentEncode(key), percentEncode(value)})
	}
	for key, value := range extra {
		pairs = append(pairs, pair{percentEncode(key), percentEncode(value)})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	joined := make([]string, 0, len(pairs))
	for _, p := range pairs {
		joined = append(joined, p.key+"="+p.value)
	}

	base := strings.ToUpper(method) + "&" + percentEncode(rawURL) + "&" + percentEncode(strings.Join(joined, "&"))
	key := percentEncode(creds.consumerSecret) + "&" + percentEncode(creds.tokenSecret)

	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// percentEncode escapes everything outside the RFC 3986 unreserved set,
// which is stricter than url.QueryEscape.
func percentEncode(s string) string {
	var buf strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			buf.WriteByte(c)
		default:
			fmt.Fprintf(&buf, "%%%02X", c)
		}
	}
	return buf.String()
}

func newNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "0000000000000000"
	}
	return hex.EncodeToString(b)
}
