// SPDX-License-Identifier: GPL-3.0-or-later
package rspamd

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fakeController(t *testing.T, status int, response string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			_, _ = io.WriteString(w, "pong\r\n")
		case "/checkv2":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "secret", r.Header.Get("Password"))
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "raw mail", string(body))
			w.WriteHeader(status)
			_, _ = io.WriteString(w, response)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		isSpam   bool
		score    float64
		err      string
	}{
		{"ham", 200, `{"score": 1.5, "action": "no action", "symbols": {"R_SPF_ALLOW": {"name": "R_SPF_ALLOW", "score": -0.2}}}`, false, 1.5, ""},
		{"spam", 200, `{"score": 16.1, "action": "reject", "symbols": {"BAYES_SPAM": {"name": "BAYES_SPAM", "score": 5.1}}}`, true, 16.1, ""},
		{"add header", 200, `{"score": 7, "action": "add header", "symbols": {"BAYES_SPAM": {"name": "BAYES_SPAM", "score": 5.1}}}`, true, 7, ""},
		{"rewrite subject", 200, `{"score": 9, "action": "rewrite subject", "symbols": {"BAYES_SPAM": {"name": "BAYES_SPAM", "score": 5.1}}}`, true, 9, ""},
		{"greylist", 200, `{"score": 4.5, "action": "greylist", "symbols": {"R_SPF_ALLOW": {"name": "R_SPF_ALLOW", "score": -0.2}}}`, false, 4.5, ""},
		{"soft reject", 200, `{"score": 5, "action": "soft reject", "symbols": {"RATELIMIT": {"name": "RATELIMIT", "score": 0}}}`, false, 5, ""},
		{"tolerated fail", 200, `{"score": 3, "action": "no action", "symbols": {"R_SPF_FAIL": {"name": "R_SPF_FAIL", "score": 1}}}`, false, 3, ""},
		{"unexpected fail", 200, `{"score": 3, "action": "no action", "symbols": {"RBL_FAIL": {"name": "RBL_FAIL", "score": 0}}}`, false, 0, "unexpected FAIL symbol RBL_FAIL in rspamd response"},
		{"skipped", 200, `{"is_skipped": true, "action": "no action"}`, false, 0, "rspamd skipped the message"},
		{"nosymbols", 200, `{"score": 0, "action": "no action", "symbols": {}}`, false, 0, "could not find any symbols in rspamd response"},
		{"status", 500, ``, false, 0, "unexpected status 500 from rspamd, expected 200"},
		{"garbage", 200, `{`, false, 0, "could not deserialize rspamd response: unexpected end of JSON input"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := fakeController(t, tc.status, tc.response)
			defer server.Close()

			rs, err := NewRspamd(server.URL+"/", "secret")
			assert.NoError(t, err)

			result := rs.Check([]byte("raw mail"))
			if len(tc.err) == 0 {
				assert.NoError(t, result.Error)
				assert.Equal(t, tc.isSpam, result.IsSpam)
				assert.Equal(t, tc.score, result.Score)
			} else {
				assert.EqualError(t, result.Error, tc.err)
			}
		})
	}
}

func TestNewRspamd_PingFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	rs, err := NewRspamd(server.URL, "")
	assert.Nil(t, rs)
	assert.EqualError(t, err, "could not ping rspamd: unexpected status 503, expected 200")
}
