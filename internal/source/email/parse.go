package email

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message/mail"

	"github.com/nhle/mailboard/internal/textutil"
)

// parseMIMEBody parses a raw RFC 2822 message using go-message and returns
// the text/plain and text/html bodies and whether it carries attachments.
func parseMIMEBody(raw []byte) (textBody, htmlBody string, hasAttachment bool) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// If parsing fails, try treating the whole thing as plain text
		return string(raw), "", false
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err != nil {
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
			case strings.HasPrefix(contentType, "text/plain") && textBody == "":
				textBody = string(body)
			case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
				htmlBody = string(body)
			}

		case *mail.AttachmentHeader:
			hasAttachment = true
		}
	}

	return textBody, htmlBody, hasAttachment
}

// snippetFromPartial builds a preview from the first bytes of a message
// body. Partial bodies of multipart messages still contain boundaries and
// part headers, which are skipped.
func snippetFromPartial(raw []byte, max int) string {
	var kept []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		switch {
		case line == "",
			strings.HasPrefix(line, "--"),
			strings.HasPrefix(lower, "content-"),
			strings.HasPrefix(lower, "mime-version"):
			continue
		}
		kept = append(kept, line)
	}
	s := textutil.CollapseSpace(textutil.StripHTML(strings.Join(kept, " ")))
	if r := []rune(s); len(r) > max {
		s = string(r[:max])
	}
	return s
}
