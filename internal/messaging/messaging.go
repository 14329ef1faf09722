// Package messaging builds the chat hand-off links shown after a booking request.
package messaging

import (
	"errors"
	"net/url"
	"strings"
)

var ErrNoPhone = errors.New("no phone number to message")

const chatBaseURL = "https://wa.me/"

// ChatLink returns a WhatsApp click-to-chat link for phone prefilled with text.
// Everything except digits is stripped from phone.
func ChatLink(phone, text string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if digits == "" {
		return "", ErrNoPhone
	}
	link := chatBaseURL + digits
	if text = strings.TrimSpace(text); text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link, nil
}
