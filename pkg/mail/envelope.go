// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package mail

import (
	netmail "net/mail"
	"strings"

	"github.com/telekom/form-relay/pkg/config"
	"github.com/telekom/form-relay/pkg/submission"
)

const (
	// NameField and EmailField are the submitted fields that shape From and Reply-To.
	NameField  = "name"
	EmailField = "email"
)

type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// Envelope is everything handed to the relay for one submission. It is built
// fresh per request and carries zero or one attachment.
type Envelope struct {
	FromName       string
	FromAddress    string
	ReplyToName    string
	ReplyToAddress string
	To             []string
	Subject        string
	HTMLBody       string
	Attachments    []Attachment
	// MessageID is the bare id-left@id-right, without angle brackets. Empty lets the relay assign one.
	MessageID string
}

// BuildEnvelope derives the envelope from a submission and the fixed mail settings.
// submissionID, when set, becomes the local part of the Message-ID.
func BuildEnvelope(sub *submission.Submission, cfg config.Mail, submissionID string) *Envelope {
	fromName, _ := sub.Get(NameField)
	if fromName == "" {
		fromName = cfg.SenderName
	}
	if fromName == "" {
		fromName = config.DefaultSenderName
	}
	submitted, _ := sub.Get(EmailField)
	replyTo := replyToAddress(submitted, cfg.From)

	env := &Envelope{
		FromName:       fromName,
		FromAddress:    cfg.From,
		ReplyToName:    fromName,
		ReplyToAddress: replyTo,
		To:             splitRecipients(cfg.To),
		Subject:        cfg.Subject,
		HTMLBody:       FormatHTML(sub.Fields, FormatOptions{Raw: cfg.RawHTML, Exclude: cfg.ExcludeFields}),
		Attachments:    []Attachment{},
	}
	if sub.File != nil {
		content := make([]byte, len(sub.File.Content))
		copy(content, sub.File.Content)
		env.Attachments = append(env.Attachments, Attachment{
			Name:        sub.File.Name,
			ContentType: sub.File.ContentType,
			Content:     content,
		})
	}
	if submissionID != "" {
		env.MessageID = submissionID + "@" + domainOf(cfg.From)
	}
	return env
}

// replyToAddress keeps only the bare address of a submitted value that parses as
// exactly one RFC 5322 address. Anything else, including values carrying CR or LF,
// falls back so no submitted text reaches the header unparsed.
func replyToAddress(submitted, fallback string) string {
	if strings.TrimSpace(submitted) == "" {
		return fallback
	}
	addr, err := netmail.ParseAddress(submitted)
	if err != nil || strings.ContainsAny(addr.Address, "\r\n") {
		return fallback
	}
	return addr.Address
}

func splitRecipients(to string) []string {
	var out []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return strings.TrimSuffix(address[i+1:], ">")
	}
	return "form-relay.local"
}
