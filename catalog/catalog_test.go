package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"

	"claimdesk/apperr"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, rec := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		rec := rec
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rec))
	}
	path := filepath.Join(t.TempDir(), "OSID DATA.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

var sampleSheet = [][]string{
	{" Mobile No ", "Customer  Name", "INVOICE NO", "Model", "Serial_No", "OSID"},
	{"9876543210", "A Kumar", "INV1", "X1", "S1", "OS1"},
	{"9123456780", "B Nair", "INV2", "Y2", "S2", "OS2"},
	{"", "", "", "", "", ""},
	{"9876543210", "A Kumar", "INV3", "X3", "S3", "OS3"},
}

func TestLoader_ReadsWorkbookWithHeaderVariants(t *testing.T) {
	path := writeWorkbook(t, sampleSheet)

	cat := NewLoader(path, time.Minute, nil).Load(context.Background())
	require.NoError(t, cat.Err())
	assert.Empty(t, cat.Warning())
	assert.Equal(t, 3, cat.Len(), "blank rows are skipped")

	want := ColumnMap{
		FieldMobile:   "mobile no",
		FieldCustomer: "customer name",
		FieldInvoice:  "invoice no",
		FieldModel:    "model",
		FieldSerial:   "serial_no",
		FieldOSID:     "osid",
		FieldEmail:    "email",
	}
	if diff := cmp.Diff(want, cat.Columns()); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}

	first := cat.Rows()[0]
	assert.Equal(t, Row{Mobile: "9876543210", Customer: "A Kumar", Invoice: "INV1", Model: "X1", Serial: "S1", OSID: "OS1"}, first)
}

func TestLoader_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.csv")
	content := "mobile,customer,invoice,model,serialno,osid,email\n" +
		"9876543210,A Kumar,INV1,X1,S1,OS1,a@example.com\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cat := NewLoader(path, 0, nil).Load(context.Background())
	require.NoError(t, cat.Err())
	require.Equal(t, 1, cat.Len())
	assert.Equal(t, "a@example.com", cat.Rows()[0].Email)
	assert.Equal(t, "S1", cat.Rows()[0].Serial)
}

func TestLoader_MissingFileDegradesToEmpty(t *testing.T) {
	var observed []error
	l := NewLoader(filepath.Join(t.TempDir(), "absent.xlsx"), time.Minute, nil).
		WithObserver(func(rows int, err error) { observed = append(observed, err) })

	cat := l.Load(context.Background())
	assert.True(t, cat.Empty())
	assert.True(t, apperr.Is(cat.Err(), apperr.KindDataSource))
	assert.Contains(t, cat.Warning(), "Could not load catalog file")
	require.Len(t, observed, 1)

	rows, err := cat.Find("9876543210")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoader_UnmappedColumnsReadAsEmpty(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"Phone", "Customer"},
		{"9876543210", "A Kumar"},
	})

	cat := NewLoader(path, time.Minute, nil).Load(context.Background())
	require.NoError(t, cat.Err())
	assert.Equal(t, "mobile no", cat.Columns()[FieldMobile], "falls back to literal key")

	rows, err := cat.Find("9876543210")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestLoader_CachesUntilExpiry(t *testing.T) {
	path := writeWorkbook(t, sampleSheet)
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	reads := 0

	l := NewLoader(path, 5*time.Minute, nil).
		WithClock(func() time.Time { return now }).
		WithObserver(func(int, error) { reads++ })

	first := l.Load(context.Background())
	require.NoError(t, os.Remove(path))

	now = now.Add(4 * time.Minute)
	assert.Same(t, first, l.Load(context.Background()), "served from cache inside ttl")
	assert.Equal(t, 1, reads)

	now = now.Add(2 * time.Minute)
	second := l.Load(context.Background())
	assert.Equal(t, 2, reads)
	assert.True(t, second.Empty(), "expired snapshot re-reads the now missing file")

	l.Invalidate()
	l.Load(context.Background())
	assert.Equal(t, 3, reads)
}

func TestLoader_ConcurrentLoadsShareOneRead(t *testing.T) {
	path := writeWorkbook(t, sampleSheet)
	var (
		mu    sync.Mutex
		reads int
	)
	l := NewLoader(path, time.Minute, nil).WithObserver(func(int, error) {
		mu.Lock()
		reads++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	results := make([]*Catalog, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = l.Load(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, reads)
	for _, c := range results {
		assert.Same(t, results[0], c)
	}
}

func TestLoader_CanceledContext(t *testing.T) {
	path := writeWorkbook(t, sampleSheet)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewLoader(path, time.Minute, nil)
	cat := l.Load(ctx)
	assert.True(t, cat.Empty())
	assert.ErrorIs(t, cat.Err(), context.Canceled)

	cat = l.Load(context.Background())
	require.NoError(t, cat.Err())
	rows, err := cat.Find("9876543210")
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

func TestNormalizeHeader(t *testing.T) {
	cases := map[string]string{
		"  Mobile   No ":    "mobile no",
		"Mobile\u00a0No\u00a0":  "mobile no",
		"SERIAL_NO":         "serial_no",
		"Customer\tName\n":  "customer name",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeHeader(in), "input %q", in)
	}
}
