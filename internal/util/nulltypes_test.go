package util

import (
	"database/sql"
	"testing"
)

func TestNullInt64FromPtr(t *testing.T) {
	if got := NullInt64FromPtr(nil); got.Valid {
		t.Errorf("NullInt64FromPtr(nil) = %+v, want invalid", got)
	}

	v := int64(42)
	got := NullInt64FromPtr(&v)
	if !got.Valid || got.Int64 != 42 {
		t.Errorf("NullInt64FromPtr(&42) = %+v, want valid 42", got)
	}
}

func TestInt64PtrFromNull(t *testing.T) {
	if got := Int64PtrFromNull(sql.NullInt64{}); got != nil {
		t.Errorf("Int64PtrFromNull(invalid) = %v, want nil", got)
	}

	got := Int64PtrFromNull(sql.NullInt64{Int64: 9, Valid: true})
	if got == nil || *got != 9 {
		t.Errorf("Int64PtrFromNull(valid 9) = %v, want 9", got)
	}
}

func TestParseNullInt64Positive(t *testing.T) {
	tests := []struct {
		in        string
		wantValid bool
		wantVal   int64
	}{
		{"", false, 0},
		{"abc", false, 0},
		{"0", false, 0},
		{"-5", false, 0},
		{"13", true, 13},
	}

	for _, tt := range tests {
		got := ParseNullInt64Positive(tt.in)
		if got.Valid != tt.wantValid {
			t.Errorf("ParseNullInt64Positive(%q).Valid = %v, want %v", tt.in, got.Valid, tt.wantValid)
			continue
		}
		if got.Valid && got.Int64 != tt.wantVal {
			t.Errorf("ParseNullInt64Positive(%q) = %d, want %d", tt.in, got.Int64, tt.wantVal)
		}
	}
}
