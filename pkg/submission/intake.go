// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package submission

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/telekom/form-relay/pkg/config"
)

// maxFieldBytes caps a single text field.
const maxFieldBytes = 1 << 20

var (
	// ErrFileTooLarge is returned when the upload exceeds the configured limit.
	ErrFileTooLarge = errors.New("file too large")
	// ErrFieldTooLarge is returned when a text field exceeds maxFieldBytes.
	ErrFieldTooLarge = errors.New("field value too large")
	// ErrUnexpectedFile is returned for a second file, or a file under any other field key.
	ErrUnexpectedFile = errors.New("unexpected file")
	// ErrRequestTooLarge is returned when the body limit is hit outside the file part.
	ErrRequestTooLarge = errors.New("request too large")
	// ErrNotMultipart is returned when the request body is not multipart/form-data.
	ErrNotMultipart = errors.New("request is not multipart/form-data")
)

// Intake turns a multipart request into a Submission.
type Intake struct {
	fieldKey string
	maxBytes int64
}

func NewIntake(cfg config.Upload) *Intake {
	fieldKey := cfg.FieldKey
	if fieldKey == "" {
		fieldKey = config.DefaultUploadFieldKey
	}
	maxBytes := cfg.MaxBytes()
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxUploadSizeMB * 1024 * 1024
	}
	return &Intake{fieldKey: fieldKey, maxBytes: maxBytes}
}

func (in *Intake) FieldKey() string { return in.fieldKey }

func (in *Intake) MaxBytes() int64 { return in.maxBytes }

// Parse streams the multipart body part by part so text fields keep their
// arrival order, which multipart.Form's map would lose. Nothing touches disk.
func (in *Intake) Parse(r *http.Request) (*Submission, error) {
	reader, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotMultipart, err)
	}

	sub := &Submission{}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return sub, nil
		}
		if err != nil {
			if bodyLimitHit(err) {
				return nil, fmt.Errorf("%w: %v", ErrRequestTooLarge, err)
			}
			return nil, fmt.Errorf("reading multipart body: %w", err)
		}

		name := part.FormName()
		if name == "" {
			_ = part.Close()
			continue
		}

		if isFilePart(part.Header.Get("Content-Disposition")) {
			file, err := in.readFile(name, part.FileName(), part.Header.Get("Content-Type"), part)
			_ = part.Close()
			if err != nil {
				return nil, err
			}
			if file == nil {
				continue
			}
			if sub.File != nil {
				return nil, fmt.Errorf("%w: only one file may be sent under %q", ErrUnexpectedFile, in.fieldKey)
			}
			sub.File = file
			continue
		}

		value, err := readLimited(part, maxFieldBytes)
		_ = part.Close()
		if err != nil {
			if bodyLimitHit(err) {
				return nil, fmt.Errorf("%w: reading field %q: %v", ErrRequestTooLarge, name, err)
			}
			return nil, fmt.Errorf("reading field %q: %w", name, err)
		}
		if int64(len(value)) > maxFieldBytes {
			return nil, fmt.Errorf("%w: %q exceeds %d bytes", ErrFieldTooLarge, name, maxFieldBytes)
		}
		sub.Add(name, string(value))
	}
}

// readFile returns nil for the empty part browsers send when no file was chosen.
func (in *Intake) readFile(fieldName, fileName, contentType string, r io.Reader) (*File, error) {
	content, err := readLimited(r, in.maxBytes)
	if err != nil {
		if bodyLimitHit(err) {
			return nil, fmt.Errorf("%w: reading file %q: %v", ErrFileTooLarge, fileName, err)
		}
		return nil, fmt.Errorf("reading file %q: %w", fileName, err)
	}
	if fileName == "" && len(content) == 0 {
		return nil, nil
	}
	if fieldName != in.fieldKey {
		return nil, fmt.Errorf("%w: file sent under %q, expected %q", ErrUnexpectedFile, fieldName, in.fieldKey)
	}
	if int64(len(content)) > in.maxBytes {
		return nil, fmt.Errorf("%w: %q exceeds %d bytes", ErrFileTooLarge, fileName, in.maxBytes)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &File{
		FieldName:   fieldName,
		Name:        fileName,
		ContentType: contentType,
		Content:     content,
	}, nil
}

// readLimited reads at most limit+1 bytes so callers can tell "exactly at the
// limit" from "over it" without buffering an unbounded body.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit+1))
}

// bodyLimitHit reports whether err comes from an http.MaxBytesReader around the body.
func bodyLimitHit(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

// isFilePart reports whether the part carries a filename parameter, even an empty one.
func isFilePart(contentDisposition string) bool {
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return false
	}
	_, ok := params["filename"]
	return ok
}
