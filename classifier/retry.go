// SPDX-License-Identifier: GPL-3.0-or-later
package classifier

import (
	"context"

	"github.com/CrawX/go-imap-onebox/domain"
)

// RetryingSpamClassifier checks a message a second time when the first check
// fails. Spam daemons drop connections under load now and then.
type RetryingSpamClassifier struct {
	domain.SpamClassifier
}

func (r *RetryingSpamClassifier) Check(rawMail []byte) *domain.SpamResult {
	result := r.SpamClassifier.Check(rawMail)
	if result.Error != nil {
		result = r.SpamClassifier.Check(rawMail)
	}

	return result
}

// Ping reaches the wrapped classifier if it can be pinged.
func (r *RetryingSpamClassifier) Ping(ctx context.Context) error {
	if p, ok := r.SpamClassifier.(interface{ Ping(ctx context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
