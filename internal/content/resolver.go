// Package content normalizes raw MIME messages into text/HTML bodies,
// inline images, and attachment parts, and materializes inline images
// into self-contained HTML.
package content

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"

	// Registers the charset reader so part bodies are decoded using
	// their declared character set.
	_ "github.com/emersion/go-message/charset"

	"github.com/hmalik/maildash/internal/model"
)

// InlineImage is an image part referenced from the HTML body by
// content identifier.
type InlineImage struct {
	ContentID   string
	ContentType string
	Data        []byte
}

// AttachmentPart is an attachment-disposed part. Data is retained only
// transiently, for auto-save; it never reaches the message row.
type AttachmentPart struct {
	Filename    string
	Size        int64
	ContentType string
	ContentID   string
	Data        []byte
}

// Normalized is the resolver's output for one raw message.
type Normalized struct {
	Text         string
	HTML         string
	Format       string
	InlineImages []InlineImage
	Attachments  []AttachmentPart
}

// HasAttachments reports whether any attachment-disposed part was found.
func (n Normalized) HasAttachments() bool {
	return len(n.Attachments) > 0
}

// SizeBytes is the combined size of the stored body content.
func (n Normalized) SizeBytes() int64 {
	return int64(len(n.Text) + len(n.HTML))
}

// Resolve walks every part of a raw RFC 5322 message and classifies it:
// text/plain parts accumulate into Text, text/html into HTML, inline
// images with a content identifier into InlineImages, and
// attachment-disposed parts into Attachments.
//
// Resolution is best-effort: malformed input yields a usable result
// with empty bodies alongside the parse error, so the message can still
// be persisted and the failure recorded. A part that cannot be decoded
// is kept with its raw bytes.
func Resolve(raw []byte) (Normalized, error) {
	var n Normalized

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		n.Format = model.FormatEmpty
		return n, fmt.Errorf("parsing message: %w", err)
	}
	defer mr.Close()

	var textParts, htmlParts []string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			break
		}
		if part == nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				textParts = append(textParts, string(body))
			case strings.HasPrefix(contentType, "text/html"):
				htmlParts = append(htmlParts, string(body))
			case strings.HasPrefix(contentType, "image/"):
				if cid := contentID(h.Header); cid != "" {
					n.InlineImages = append(n.InlineImages, InlineImage{
						ContentID:   cid,
						ContentType: contentType,
						Data:        body,
					})
				}
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			cid := contentID(h.Header)

			// An image part keyed by a Content-ID with no filename is an
			// inline image, even when the sender omitted the disposition.
			if filename == "" && cid != "" && strings.HasPrefix(contentType, "image/") {
				n.InlineImages = append(n.InlineImages, InlineImage{
					ContentID:   cid,
					ContentType: contentType,
					Data:        body,
				})
				continue
			}

			n.Attachments = append(n.Attachments, AttachmentPart{
				Filename:    filename,
				Size:        int64(len(body)),
				ContentType: contentType,
				ContentID:   cid,
				Data:        body,
			})
		}
	}

	n.Text = strings.TrimSpace(strings.Join(textParts, "\n"))
	n.HTML = strings.TrimSpace(strings.Join(htmlParts, "\n"))

	switch {
	case n.Text != "" && n.HTML != "":
		n.Format = model.FormatBoth
	case n.HTML != "":
		n.Format = model.FormatHTML
	case n.Text != "":
		n.Format = model.FormatText
	default:
		n.Format = model.FormatEmpty
	}

	return n, nil
}

// BodyForMatching returns the text used as the rule engine's body
// candidate: the plain text when present, otherwise the HTML stripped
// down to its textual content.
func (n Normalized) BodyForMatching() string {
	if n.Text != "" {
		return n.Text
	}
	return StripTags(n.HTML)
}

// contentID extracts and normalizes a part's Content-ID header,
// stripping the surrounding angle brackets.
func contentID(h message.Header) string {
	cid := h.Get("Content-Id")
	cid = strings.TrimSpace(cid)
	cid = strings.TrimPrefix(cid, "<")
	cid = strings.TrimSuffix(cid, ">")
	return cid
}

// StripTags removes HTML tags from s, leaving a rough plain-text
// rendering suitable for substring matching.
func StripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
