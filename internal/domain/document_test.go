package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
)

func TestNextControlNumber(t *testing.T) {
	cases := []struct {
		name     string
		existing []string
		want     string
	}{
		{
			name:     "empty set starts the series",
			existing: nil,
			want:     "000000001",
		},
		{
			name:     "max plus one with gaps",
			existing: []string{"000000001", "000000003"},
			want:     "000000004",
		},
		{
			name:     "unordered input",
			existing: []string{"000000012", "000000002", "000000007"},
			want:     "000000013",
		},
		{
			name:     "garbage entries are skipped",
			existing: []string{"oops", "000000005"},
			want:     "000000006",
		},
		{
			name:     "carries over a digit boundary",
			existing: []string{"000000099"},
			want:     "000000100",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.NextControlNumber(tc.existing)
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
			if len(got) != domain.ControlNumberWidth {
				t.Fatalf("control number must be %d digits, got %d", domain.ControlNumberWidth, len(got))
			}
		})
	}
}

func TestFormatControlNumber(t *testing.T) {
	if got := domain.FormatControlNumber(1); got != "000000001" {
		t.Fatalf("expected 000000001, got %q", got)
	}
	if got := domain.FormatControlNumber(123456789); got != "123456789" {
		t.Fatalf("expected 123456789, got %q", got)
	}
}

func TestRescaleMinor(t *testing.T) {
	cases := []struct {
		amount int64
		rate   float64
		want   int64
	}{
		{10000, 1, 10000},
		{10000, 36.5, 365000},
		{333, 0.5, 167}, // 166.5 rounds half away from zero
		{0, 100, 0},
	}

	for _, tc := range cases {
		if got := domain.RescaleMinor(tc.amount, tc.rate); got != tc.want {
			t.Fatalf("rescale %d by %v: expected %d, got %d", tc.amount, tc.rate, tc.want, got)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	cases := []struct {
		amount int64
		want   string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{950, "9.50"},
		{123456789, "1,234,567.89"},
		{-10050, "-100.50"},
	}

	for _, tc := range cases {
		if got := domain.FormatMoney(tc.amount); got != tc.want {
			t.Fatalf("format %d: expected %q, got %q", tc.amount, tc.want, got)
		}
	}
}

func TestDeliveryNoteValidate(t *testing.T) {
	note := domain.DeliveryNote{ControlNumber: "000000001", OrderID: "order-1"}
	if errs := note.Validate(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	note = domain.DeliveryNote{}
	if errs := note.Validate(); len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
}
