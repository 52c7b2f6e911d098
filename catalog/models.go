package catalog

import "time"

// Field names a logical catalog column.
type Field string

const (
	FieldMobile   Field = "mobile"
	FieldCustomer Field = "customer"
	FieldInvoice  Field = "invoice"
	FieldModel    Field = "model"
	FieldSerial   Field = "serial"
	FieldOSID     Field = "osid"
	FieldEmail    Field = "email"
)

// Row is one purchased product. Rows are never mutated after load.
type Row struct {
	Mobile   string
	Customer string
	Invoice  string
	Model    string
	Serial   string
	OSID     string
	Email    string
}

// ColumnMap resolves each logical field to the normalized header label used
// in the loaded sheet. Fields absent from the sheet map to their fallback
// label, which matches no header and therefore reads as empty.
type ColumnMap map[Field]string

// Catalog is an immutable snapshot of the purchase table.
type Catalog struct {
	rows     []Row
	columns  ColumnMap
	loadedAt time.Time
	err      error
}

// Rows returns the catalog rows in sheet order.
func (c *Catalog) Rows() []Row {
	if c == nil {
		return nil
	}
	return c.rows
}

// Len reports the number of rows.
func (c *Catalog) Len() int { return len(c.Rows()) }

// Empty reports whether the catalog holds no rows.
func (c *Catalog) Empty() bool { return c.Len() == 0 }

// Columns returns the resolved column map.
func (c *Catalog) Columns() ColumnMap {
	if c == nil {
		return nil
	}
	return c.columns
}

// LoadedAt is when the snapshot was read.
func (c *Catalog) LoadedAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	return c.loadedAt
}

// Err returns the read failure that produced an empty snapshot, if any.
func (c *Catalog) Err() error {
	if c == nil {
		return nil
	}
	return c.err
}

// Warning is the user-facing message for a failed read, or "".
func (c *Catalog) Warning() string {
	if err := c.Err(); err != nil {
		return "Could not load catalog file: " + err.Error()
	}
	return ""
}

// New builds a catalog from already-parsed rows. Used by tests and by
// callers that source rows elsewhere.
func New(rows []Row) *Catalog {
	cp := make([]Row, len(rows))
	copy(cp, rows)
	return &Catalog{rows: cp, columns: fallbackColumns(), loadedAt: time.Now()}
}
