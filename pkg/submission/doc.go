// Package submission parses contact-form posts into ordered fields plus at
// most one size-bounded, in-memory file upload.
package submission
