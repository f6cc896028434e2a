// SPDX-License-Identifier: GPL-3.0-or-later
package log

import "strings"

// MaskAddress keeps the first character of the local part and the domain of an address,
// "alice@example.com" becomes "a***@example.com". Values without an @ are masked entirely
// except for their first character.
func MaskAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}

	local, domain, found := strings.Cut(address, "@")
	if !found {
		return string([]rune(address)[:1]) + "***"
	}
	if local == "" {
		return "***@" + domain
	}

	return string([]rune(local)[:1]) + "***@" + domain
}
