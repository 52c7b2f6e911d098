package claim

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
)

// Status is the tracker-side state of a claim. The tracker owns the
// workflow; values outside the known set are carried through untouched.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusApproved   Status = "Approved"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
	StatusRejected   Status = "Rejected"
)

// Known reports whether s is one of the recognised statuses.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusApproved, StatusInProgress, StatusCompleted, StatusRejected:
		return true
	default:
		return false
	}
}

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusPending, StatusApproved, StatusInProgress, StatusCompleted, StatusRejected} {
		if strings.EqualFold(strings.TrimSpace(s), string(st)) {
			return st, true
		}
	}
	return Status(s), false
}

// Attachment is the supporting document uploaded with a claim.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Reader returns a fresh reader positioned at the first byte.
func (a *Attachment) Reader() io.Reader {
	return bytes.NewReader(a.Data)
}

// allowedDocuments are the upload types accepted as supporting documents.
var allowedDocuments = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// DocumentType returns the media type for an accepted document name.
func DocumentType(name string) (string, bool) {
	ct, ok := allowedDocuments[strings.ToLower(filepath.Ext(name))]
	return ct, ok
}

// Draft is the form state of one claim before submission.
type Draft struct {
	Mobile     string
	Address    string
	Issue      string
	Selected   []string // product display strings, see catalog.Display
	Attachment *Attachment
}

// Record is the claim as stored by the tracker. ID is assigned by the
// tracker and is empty on submission.
type Record struct {
	ID               string `json:"id,omitempty"`
	CustomerName     string `json:"customer_name"`
	MobileNo         string `json:"mobile_no"`
	Address          string `json:"address"`
	Products         string `json:"products"`
	IssueDescription string `json:"issue_description"`
	Status           Status `json:"status"`
	SubmittedDate    string `json:"submitted_date"`
}

// Message is the rendered notification for a claim.
type Message struct {
	Subject string
	HTML    string
	Text    string
}
