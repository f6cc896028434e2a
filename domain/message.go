// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import "time"

const (
	LabelInterested    = "Interested"
	LabelMeetingBooked = "Meeting Booked"
	LabelNotInterested = "Not Interested"
	LabelSpam          = "Spam"
	LabelOutOfOffice   = "Out of Office"
	LabelUncategorized = "Uncategorized"
)

var Labels = []string{
	LabelInterested,
	LabelMeetingBooked,
	LabelNotInterested,
	LabelSpam,
	LabelOutOfOffice,
	LabelUncategorized,
}

func IsKnownLabel(label string) bool {
	for _, l := range Labels {
		if l == label {
			return true
		}
	}
	return false
}

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type Classification struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type Message struct {
	Id          string    `json:"id"`
	AccountId   int64     `json:"accountId"`
	Folder      string    `json:"folder"`
	Uid         uint32    `json:"uid"`
	UidValidity uint32    `json:"uidValidity"`
	Subject     string    `json:"subject"`
	From        string    `json:"from"`
	To          []string  `json:"to"`
	Cc          []string  `json:"cc"`
	Bcc         []string  `json:"bcc"`
	Date        time.Time `json:"date"`
	Size        int64     `json:"size"`
	Flags       []string  `json:"flags"`
	TextBody    string    `json:"textBody"`
	HtmlBody    string    `json:"htmlBody"`

	Attachments    []Attachment    `json:"attachments"`
	Classification *Classification `json:"classification,omitempty"`

	Read      bool `json:"read"`
	Important bool `json:"important"`

	// RawMail is kept in memory for the spam pre-check and never persisted.
	RawMail []byte `json:"-"`
}

// LiveUpdate is published once per newly processed message.
type LiveUpdate struct {
	Id         string    `json:"id"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Date       time.Time `json:"date"`
}

func NewLiveUpdate(m *Message) LiveUpdate {
	update := LiveUpdate{
		Id:      m.Id,
		Subject: m.Subject,
		From:    m.From,
		Date:    m.Date,
	}
	if m.Classification != nil {
		update.Label = m.Classification.Label
		update.Confidence = m.Classification.Confidence
	}
	return update
}
