// SPDX-License-Identifier: GPL-3.0-or-later
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/log"

	"github.com/stretchr/testify/assert"
)

func fakeEndpoint(t *testing.T, status int, content string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			w.WriteHeader(status)
		case "/v1/chat/completions":
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

			request := chatRequest{}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&request))
			assert.Equal(t, "small", request.Model)
			assert.Len(t, request.Messages, 2)
			assert.Contains(t, request.Messages[1].Content, "Subject: Pricing")

			w.WriteHeader(status)
			response := map[string]interface{}{
				"choices": []interface{}{
					map[string]interface{}{"message": map[string]string{"role": "assistant", "content": content}},
				},
			}
			_ = json.NewEncoder(w).Encode(response)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestClassify(t *testing.T) {
	log.InitLogging("error")
	tests := []struct {
		name     string
		status   int
		content  string
		expected *domain.Classification
		err      string
	}{
		{"ok", 200, `{"label": "Interested", "confidence": 0.92}`, &domain.Classification{Label: domain.LabelInterested, Confidence: 0.92}, ""},
		{"case", 200, `{"label": "meeting booked", "confidence": 0.5}`, &domain.Classification{Label: domain.LabelMeetingBooked, Confidence: 0.5}, ""},
		{"fenced", 200, "```json\n{\"label\": \"Spam\", \"confidence\": 1}\n```", &domain.Classification{Label: domain.LabelSpam, Confidence: 1}, ""},
		{"clamped", 200, `{"label": "Out of Office", "confidence": 7}`, &domain.Classification{Label: domain.LabelOutOfOffice, Confidence: 1}, ""},
		{"unknown", 200, `{"label": "Urgent", "confidence": 0.8}`, &domain.Classification{Label: domain.LabelUncategorized}, ""},
		{"garbage", 200, `Interested!`, nil, `could not decode classification "Interested!"`},
		{"status", 500, ``, nil, "unexpected status 500 from classifier"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := fakeEndpoint(t, tc.status, tc.content)
			defer server.Close()

			c := NewClassifier(server.URL+"/v1/", "small", "key", "", time.Second)
			result, err := c.Classify(context.Background(), "Pricing", "What does it cost?", "bob@example.com")
			if len(tc.err) == 0 {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, result)
			} else {
				assert.Nil(t, result)
				assert.Error(t, err)
				assert.True(t, strings.HasPrefix(err.Error(), tc.err), err.Error())
			}
		})
	}
}

func TestClassify_Timeout(t *testing.T) {
	log.InitLogging("error")
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := NewClassifier(server.URL, "small", "", "", 50*time.Millisecond)
	start := time.Now()
	_, err := c.Classify(context.Background(), "s", "b", "f")
	assert.Error(t, err)
	assert.Less(t, int64(time.Since(start)), int64(time.Second))
}

func TestPing(t *testing.T) {
	log.InitLogging("error")
	for _, status := range []int{200, 401} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			server := fakeEndpoint(t, status, "")
			defer server.Close()

			err := NewClassifier(server.URL+"/v1", "small", "key", "", time.Second).Ping(context.Background())
			if status == 200 {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, "could not reach classifier: unexpected status 401")
			}
		})
	}
}

func TestUserPrompt_Truncates(t *testing.T) {
	prompt := userPrompt("s", strings.Repeat("ü", maxBodyRunes+10), "f")
	assert.Equal(t, maxBodyRunes, strings.Count(prompt, "ü"))
}
