// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package submission

// Field is one submitted text field. Names are not unique across a form post;
// Submission.Add merges repeats.
type Field struct {
	Name  string
	Value string
}

// File is the single optional upload, held in memory for one request only.
type File struct {
	FieldName   string
	Name        string
	ContentType string
	Content     []byte
}

func (f *File) Size() int64 {
	if f == nil {
		return 0
	}
	return int64(len(f.Content))
}

// Submission is one parsed form post: text fields in arrival order plus at most one file.
type Submission struct {
	Fields []Field
	File   *File
}

// Add appends a field, or appends value to an existing field of the same name
// (comma separated) so the field keeps the position of its first occurrence.
func (s *Submission) Add(name, value string) {
	for i := range s.Fields {
		if s.Fields[i].Name == name {
			s.Fields[i].Value += "," + value
			return
		}
	}
	s.Fields = append(s.Fields, Field{Name: name, Value: value})
}

// Get returns the value of the named field.
func (s *Submission) Get(name string) (string, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

func (s *Submission) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}

// FileName returns the uploaded file's name, or "" without an upload.
func (s *Submission) FileName() string {
	if s.File == nil {
		return ""
	}
	return s.File.Name
}
