// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/telekom/form-relay/pkg/submission"
	"github.com/telekom/form-relay/pkg/utils"
)

// MessageField is rendered as free text below the labelled fields.
const MessageField = "message"

type FormatOptions struct {
	// Raw interpolates keys and values verbatim. Only safe for trusted forms.
	Raw bool
	// Exclude lists field names or glob patterns left out of the body, e.g. "*-captcha-response".
	Exclude []string
}

// FormatHTML renders submitted fields, in order, as an HTML fragment:
//
//	<b>Name</b>: Alice<br>
//	<br><br>free text of the message field
//
// It is a pure function of its arguments.
func FormatHTML(fields []submission.Field, opts FormatOptions) string {
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		if utils.GlobMatchAny(opts.Exclude, f.Name) {
			continue
		}
		value := f.Value
		if !opts.Raw {
			value = html.EscapeString(value)
		}
		if f.Name == MessageField {
			lines = append(lines, "<br><br>"+value)
			continue
		}
		label := capitalize(f.Name)
		if !opts.Raw {
			label = html.EscapeString(label)
		}
		lines = append(lines, "<b>"+label+"</b>: "+value+"<br>")
	}
	return strings.Join(lines, "\n")
}

// capitalize upper-cases the first character only; the rest is left as submitted.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return strings.ToUpper(string(r)) + s[size:]
}
