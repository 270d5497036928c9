package content

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// MaterializeInline replaces each cid: reference in the HTML body with a
// base64 data URI of the matching inline image, so the HTML is viewable
// without any external fetch. References with no matching image are
// left untouched.
func MaterializeInline(html string, images []InlineImage) string {
	if html == "" || len(images) == 0 {
		return html
	}

	out := html
	for _, img := range images {
		if img.ContentID == "" || len(img.Data) == 0 {
			continue
		}

		contentType := img.ContentType
		if contentType == "" {
			contentType = "image/jpeg"
		}

		dataURI := fmt.Sprintf("data:%s;base64,%s",
			contentType, base64.StdEncoding.EncodeToString(img.Data))

		// src attributes first, with or without quotes, any case.
		srcPattern := regexp.MustCompile(
			`(?i)src=["']?cid:` + regexp.QuoteMeta(img.ContentID) + `["']?`)
		out = srcPattern.ReplaceAllString(out, `src="`+dataURI+`"`)

		// Then any remaining bare references.
		out = strings.ReplaceAll(out, "cid:"+img.ContentID, dataURI)
	}

	return out
}
