package apperr

import (
	"errors"
	"fmt"
	"testing"
)

type kinded struct{}

func (kinded) Error() string { return "kinded" }
func (kinded) Kind() Kind    { return KindValidation }

func TestKindOf(t *testing.T) {
	base := errors.New("dial tcp: timeout")

	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"transport", Transport("notify: send", base), KindTransport},
		{"wrapped malformed", fmt.Errorf("tracker: list: %w", Malformed("decode", base)), KindMalformed},
		{"data source", DataSource("catalog: read", base), KindDataSource},
		{"self-describing", fmt.Errorf("claim: %w", kinded{}), KindValidation},
		{"plain", base, KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}

func TestNewNilAndUnwrap(t *testing.T) {
	if New(KindTransport, "op", nil) != nil {
		t.Fatal("expected nil for nil error")
	}

	base := errors.New("boom")
	err := Transport("tracker: submit", base)
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped error to be reachable")
	}
	if err.Error() != "tracker: submit: boom" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !Is(err, KindTransport) || Is(err, KindMalformed) {
		t.Fatal("unexpected Is result")
	}
}
