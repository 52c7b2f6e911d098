package claim

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"claimdesk/catalog"
)

// ErrForeignRow signals a product row that does not belong to the draft's
// mobile number.
var ErrForeignRow = errors.New("claim: product row belongs to a different mobile number")

// DefaultSubjectPrefix opens every notification subject.
const DefaultSubjectPrefix = "Warranty Claim Submission"

// Composer turns a validated draft and its catalog rows into the tracker
// record and the notification message.
type Composer struct {
	subjectPrefix string
	greeting      string
	signature     []string
	now           func() time.Time
}

// NewComposer returns a composer using prefix for subjects.
func NewComposer(prefix string) *Composer {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Composer{
		subjectPrefix: prefix,
		greeting:      "Dear Team,",
		now:           time.Now,
	}
}

// WithLetter sets the salutation and the sign-off lines of the body.
func (c *Composer) WithLetter(greeting string, signature []string) *Composer {
	if strings.TrimSpace(greeting) != "" {
		c.greeting = greeting
	}
	c.signature = signature
	return c
}

// WithClock overrides the submission clock.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

// Compose validates d and renders it against rows, the lookup result for
// d.Mobile. Selection is by catalog.Display equality; products appear in
// catalog order in the message and in selection order in the record.
func (c *Composer) Compose(d Draft, rows []catalog.Row) (Record, Message, error) {
	if err := Validate(d); err != nil {
		return Record{}, Message{}, err
	}

	mobile := strings.TrimSpace(d.Mobile)
	for _, r := range rows {
		if strings.TrimSpace(r.Mobile) != mobile {
			return Record{}, Message{}, fmt.Errorf("%w: %s", ErrForeignRow, catalog.Display(r))
		}
	}

	selected, chosen := resolveSelection(d.Selected, rows)
	if len(selected) == 0 {
		return Record{}, Message{}, &ValidationError{Problems: []string{MsgProductRequired}}
	}

	customer := catalog.Customer(rows)
	submitted := c.now().In(IST)

	rec := Record{
		CustomerName:     customer,
		MobileNo:         mobile,
		Address:          strings.TrimSpace(d.Address),
		Products:         strings.Join(chosen, "; "),
		IssueDescription: strings.TrimSpace(d.Issue),
		Status:           StatusPending,
		SubmittedDate:    submitted.Format(time.RFC3339),
	}

	view := letterView{
		Greeting:  c.greeting,
		Customer:  customer,
		Mobile:    mobile,
		Address:   rec.Address,
		Products:  selected,
		Issue:     rec.IssueDescription,
		Submitted: Stamp(submitted),
		Signature: c.signature,
	}

	var html, text bytes.Buffer
	if err := htmlLetter.Execute(&html, view); err != nil {
		return Record{}, Message{}, fmt.Errorf("claim: render html body: %w", err)
	}
	if err := textLetter.Execute(&text, view); err != nil {
		return Record{}, Message{}, fmt.Errorf("claim: render text body: %w", err)
	}

	msg := Message{
		Subject: Subject(c.subjectPrefix, OSIDs(selected), customer),
		HTML:    html.String(),
		Text:    text.String(),
	}
	return rec, msg, nil
}

// Subject builds "<prefix> – OSID: <a, b> – <customer>".
func Subject(prefix string, osids []string, customer string) string {
	return fmt.Sprintf("%s – OSID: %s – %s", prefix, strings.Join(osids, ", "), customer)
}

// OSIDs returns the distinct non-blank OSIDs of rows in first-seen order.
func OSIDs(rows []catalog.Row) []string {
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		id := strings.TrimSpace(r.OSID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// resolveSelection returns the rows whose display string was selected, in
// row order, and the matched display strings in selection order without
// duplicates.
func resolveSelection(selection []string, rows []catalog.Row) ([]catalog.Row, []string) {
	byDisplay := make(map[string]bool, len(rows))
	for _, r := range rows {
		byDisplay[catalog.Display(r)] = true
	}

	picked := make(map[string]bool, len(selection))
	chosen := make([]string, 0, len(selection))
	for _, s := range selection {
		if byDisplay[s] && !picked[s] {
			picked[s] = true
			chosen = append(chosen, s)
		}
	}

	selected := make([]catalog.Row, 0, len(chosen))
	for _, r := range rows {
		if picked[catalog.Display(r)] {
			selected = append(selected, r)
		}
	}
	return selected, chosen
}

type letterView struct {
	Greeting  string
	Customer  string
	Mobile    string
	Address   string
	Products  []catalog.Row
	Issue     string
	Submitted string
	Signature []string
}

var htmlLetter = htmltemplate.Must(htmltemplate.New("letter.html").Parse(`<div style="font-family: Arial, sans-serif; max-width: 800px; margin: 0 auto;">
  <div style="background: #2E86C1; color: white; padding: 20px; text-align: center; border-radius: 10px 10px 0 0;">
    <h2 style="margin: 0;">Warranty Claim Submission</h2>
    <p style="margin: 5px 0 0 0;">New claim received from customer</p>
  </div>
  <div style="background: #f8f9fa; padding: 20px; border-radius: 0 0 10px 10px;">
    <p>{{.Greeting}}</p>
    <p>We have received a warranty claim for the products purchased by our customer. Please find the details below:</p>
    <div style="background: white; padding: 15px; border-radius: 8px; margin: 12px 0; border-left: 4px solid #2E86C1;">
      <h3 style="color: #2E86C1; margin-top: 0;">Customer Information</h3>
      <p><strong>Name:</strong> {{.Customer}}<br>
      <strong>Mobile No:</strong> {{.Mobile}}<br>
      <strong>Address:</strong> {{.Address}}</p>
    </div>
    <div style="background: white; padding: 15px; border-radius: 8px; margin: 12px 0; border-left: 4px solid #28A745;">
      <h3 style="color: #28A745; margin-top: 0;">Product(s) Details</h3>
      <div style="font-family: monospace; font-size: 14px;">
      {{- range $i, $p := .Products}}{{if $i}}<br><br>{{end}}
        Invoice  : {{$p.Invoice}}<br>
        Model    : {{$p.Model}}<br>
        Serial No: {{$p.Serial}}<br>
        OSID     : {{$p.OSID}}
      {{- end}}
      </div>
    </div>
    <div style="background: white; padding: 15px; border-radius: 8px; margin: 12px 0; border-left: 4px solid #FFC107;">
      <h3 style="color: #FFC107; margin-top: 0;">Issue Description</h3>
      <p style="background: #f8f9fa; padding: 10px; border-radius: 5px; font-style: italic;">"{{.Issue}}"</p>
    </div>
    <div style="background: #e7f3ff; padding: 12px; border-radius: 8px; margin: 12px 0;">
      <p><strong>Submitted:</strong> {{.Submitted}}</p>
      <p style="margin-bottom: 0;">We request your team to review and process this claim at the earliest convenience.</p>
    </div>
    <div style="text-align: center; margin-top: 14px; padding-top: 10px; border-top: 1px solid #e9ecef;">
      <p style="margin: 0;"><strong>Best Regards,</strong>{{range .Signature}}<br>
      {{.}}{{end}}</p>
    </div>
  </div>
</div>
`))

var textLetter = texttemplate.Must(texttemplate.New("letter.txt").Parse(`{{.Greeting}}

We have received a warranty claim for the products purchased by our customer. Please find the details below:

Customer Information
Name     : {{.Customer}}
Mobile No: {{.Mobile}}
Address  : {{.Address}}

Product(s) Details
{{range $i, $p := .Products}}{{if $i}}----
{{end}}Invoice  : {{$p.Invoice}}
Model    : {{$p.Model}}
Serial No: {{$p.Serial}}
OSID     : {{$p.OSID}}
{{end}}
Issue Description
"{{.Issue}}"

Submitted: {{.Submitted}}

We request your team to review and process this claim at the earliest convenience.

Best Regards,
{{range .Signature}}{{.}}
{{end}}`))
