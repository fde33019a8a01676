// Package validate checks reviewer and upload input before it reaches AWS.
package validate

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kylejryan/healthcopilot/internal/models"
	"github.com/kylejryan/healthcopilot/internal/s3io"
)

// MaxCommentLen bounds audit comments.
const MaxCommentLen = 1000

var langRx = regexp.MustCompile(`^[a-z]{2,3}(-[A-Za-z]{2,4})?$`)

// FilenameForm checks that the filename is a form format text extraction accepts.
func FilenameForm(fn string) error {
	base := filepath.Base(strings.TrimSpace(fn))
	if base == "" || base == "." || base == "/" {
		return errors.New("filename required")
	}
	if s3io.ContentTypeFor(base) == "" {
		return errors.New("only .pdf, .png, .jpg, .jpeg, .tif and .tiff files allowed")
	}
	return nil
}

// ContentTypeMatches checks that a client-declared Content-Type, when given,
// matches the filename's format.
func ContentTypeMatches(fn, ct string) error {
	ct = strings.TrimSpace(strings.ToLower(ct))
	if ct == "" {
		return nil
	}
	if want := s3io.ContentTypeFor(fn); ct != want {
		return fmt.Errorf("Content-Type must be %s for %s", want, filepath.Ext(fn))
	}
	return nil
}

// Status checks that s names a workflow status.
func Status(s string) error {
	if _, err := models.ParseStatus(s); err != nil {
		return err
	}
	return nil
}

// Comment checks the audit comment length.
func Comment(c string) error {
	if len(c) > MaxCommentLen {
		return fmt.Errorf("comment exceeds %d characters", MaxCommentLen)
	}
	return nil
}

// FormIDOK checks that a path form id is present.
func FormIDOK(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("form_id required")
	}
	return nil
}

// LanguageCode checks a translation target such as "es" or "zh-TW".
func LanguageCode(code string) error {
	if !langRx.MatchString(code) {
		return fmt.Errorf("invalid language code %q", code)
	}
	return nil
}
