package tracker

import (
	"strings"
	"unicode/utf8"

	"claimdesk/claim"
)

// CardTextLimit is the number of characters a card shows per free-text field.
const CardTextLimit = 60

// Card is the summary view of one claim.
type Card struct {
	Customer    string `json:"customer"`
	Mobile      string `json:"mobile"`
	Status      string `json:"status"`
	StatusClass string `json:"status_class"`
	Address     string `json:"address"`
	Products    string `json:"products"`
	Issue       string `json:"issue"`
}

// Row is the table view of one claim with the submission time in IST.
type Row struct {
	ID        string `json:"id,omitempty"`
	Customer  string `json:"customer_name"`
	Mobile    string `json:"mobile_no"`
	Address   string `json:"address"`
	Products  string `json:"products"`
	Issue     string `json:"issue_description"`
	Status    string `json:"status"`
	Submitted string `json:"submitted_date_ist"`
}

// FilterByMobile keeps records whose trimmed mobile equals the trimmed
// filter. A blank filter keeps everything.
func FilterByMobile(records []claim.Record, mobile string) []claim.Record {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return records
	}
	out := make([]claim.Record, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.MobileNo) == mobile {
			out = append(out, r)
		}
	}
	return out
}

// Cards projects records to cards.
func Cards(records []claim.Record) []Card {
	cards := make([]Card, 0, len(records))
	for _, r := range records {
		status := orDefault(string(r.Status), "Unknown")
		cards = append(cards, Card{
			Customer:    orDefault(r.CustomerName, "N/A"),
			Mobile:      orDefault(r.MobileNo, "N/A"),
			Status:      status,
			StatusClass: "status-" + strings.ReplaceAll(strings.ToLower(status), " ", "-"),
			Address:     Truncate(orDefault(r.Address, "N/A"), CardTextLimit),
			Products:    Truncate(orDefault(r.Products, "N/A"), CardTextLimit),
			Issue:       Truncate(orDefault(r.IssueDescription, "N/A"), CardTextLimit),
		})
	}
	return cards
}

// Rows projects records to table rows.
func Rows(records []claim.Record) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, Row{
			ID:        r.ID,
			Customer:  r.CustomerName,
			Mobile:    r.MobileNo,
			Address:   r.Address,
			Products:  r.Products,
			Issue:     r.IssueDescription,
			Status:    string(r.Status),
			Submitted: FormatSubmitted(r.SubmittedDate),
		})
	}
	return rows
}

// FormatSubmitted renders a stored submission date as
// "YYYY-MM-DD HH:MM:SS IST".
func FormatSubmitted(s string) string { return claim.FormatSubmitted(s) }

// Truncate cuts s to limit characters and appends "..." when it was longer.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
