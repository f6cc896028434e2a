// SPDX-License-Identifier: GPL-3.0-or-later
package mail

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/microcosm-cc/bluemonday"
)

var htmlPolicy = bluemonday.UGCPolicy()

// ParsedMail is a mail reduced to what the fetcher needs. IdHash digests the
// Message-Id and Received headers and is empty for mail without a Received trail.
type ParsedMail struct {
	MessageId   string
	IdHash      string
	Subject     string
	From        string
	To          []string
	Cc          []string
	Bcc         []string
	Date        time.Time
	TextBody    string
	HtmlBody    string
	Attachments []domain.Attachment
}

// ParseMail parses headers, bodies and attachment metadata. Unknown charsets are tolerated,
// structurally broken mails are not.
func ParseMail(rawMail []byte) (*ParsedMail, error) {
	mr, err := mail.CreateReader(bytes.NewReader(rawMail))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("could not parse mail: %w", err)
	}
	if mr == nil {
		return nil, fmt.Errorf("could not parse mail: %w", err)
	}
	defer mr.Close()

	parsed := &ParsedMail{}
	header := mr.Header

	parsed.MessageId, _ = header.MessageID()

	received := headerValues(header, "Received")
	if len(received) > 0 {
		parsed.IdHash, err = hash([][]string{headerValues(header, "Message-Id"), received})
		if err != nil {
			return nil, fmt.Errorf("could not hash headers: %w", err)
		}
	}

	parsed.Subject, err = header.Subject()
	if err != nil {
		parsed.Subject = header.Get("Subject")
	}

	from := addresses(header, "From")
	if len(from) > 0 {
		parsed.From = from[0]
	} else {
		parsed.From = strings.TrimSpace(header.Get("From"))
	}
	parsed.To = addresses(header, "To")
	parsed.Cc = addresses(header, "Cc")
	parsed.Bcc = addresses(header, "Bcc")

	if date, err := header.Date(); err == nil {
		parsed.Date = date
	}

	text := &strings.Builder{}
	html := &strings.Builder{}
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return nil, fmt.Errorf("could not read mail part: %w", err)
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			if contentType == "" {
				contentType = "text/plain"
			}
			if contentType != "text/plain" && contentType != "text/html" {
				size, err := io.Copy(io.Discard, p.Body)
				if err != nil {
					return nil, fmt.Errorf("could not read inline part: %w", err)
				}
				filename := ""
				if _, params, err := h.ContentDisposition(); err == nil {
					filename = params["filename"]
				}
				parsed.Attachments = append(parsed.Attachments, domain.Attachment{
					Filename:    filename,
					ContentType: contentType,
					Size:        size,
				})
				continue
			}

			body, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, fmt.Errorf("could not read %s part: %w", contentType, err)
			}
			if contentType == "text/html" {
				html.Write(body)
			} else {
				text.Write(body)
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			size, err := io.Copy(io.Discard, p.Body)
			if err != nil {
				return nil, fmt.Errorf("could not read attachment %s: %w", filename, err)
			}
			parsed.Attachments = append(parsed.Attachments, domain.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        size,
			})
		}
	}

	parsed.TextBody = strings.TrimSpace(text.String())
	if html.Len() > 0 {
		parsed.HtmlBody = htmlPolicy.Sanitize(html.String())
		if len(parsed.TextBody) == 0 {
			parsed.TextBody = HtmlToText(html.String())
		}
	}

	return parsed, nil
}

// HtmlToText renders html as markdown, which reads as plain text for classification and search.
func HtmlToText(html string) string {
	text, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return strings.TrimSpace(htmlPolicy.Sanitize(html))
	}
	return strings.TrimSpace(text)
}

func headerValues(header mail.Header, key string) []string {
	values := []string{}
	fields := header.FieldsByKey(key)
	for fields.Next() {
		values = append(values, fields.Value())
	}
	return values
}

func addresses(header mail.Header, key string) []string {
	list, err := header.AddressList(key)
	if err != nil {
		return nil
	}

	result := []string{}
	for _, a := range list {
		result = append(result, a.Address)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func ShortSubject(subject string) string {
	if len([]rune(subject)) > 30 {
		subject = string([]rune(subject)[:30]) + "..."
	}
	return subject
}

func hash(input [][]string) (string, error) {
	sha := sha256.New()
	for _, i := range input {
		for _, ii := range i {
			_, err := sha.Write([]byte(ii))
			if err != nil {
				return "", fmt.Errorf("could not hash: %w", err)
			}
		}
	}

	return fmt.Sprintf("%x", sha.Sum(nil)), nil
}
