package internal

import "testing"

func TestNewOTPIsNumericWithRequestedLength(t *testing.T) {
	for i := 0; i < 200; i++ {
		otp, err := NewOTP(6)
		if err != nil {
			t.Fatalf("NewOTP failed: %v", err)
		}
		if len(otp) != 6 {
			t.Fatalf("expected 6 digits, got %q", otp)
		}
		for _, c := range otp {
			if c < '0' || c > '9' {
				t.Fatalf("expected numeric otp, got %q", otp)
			}
		}
	}
}

func TestNewOTPRejectsInvalidLength(t *testing.T) {
	if _, err := NewOTP(5); err == nil {
		t.Fatal("expected error for 5 digits")
	}
	if _, err := NewOTP(11); err == nil {
		t.Fatal("expected error for 11 digits")
	}
}

func TestEqualSecret(t *testing.T) {
	if !EqualSecret("123456", "123456") {
		t.Fatal("expected equal secrets to match")
	}
	if EqualSecret("123456", "123457") {
		t.Fatal("expected different secrets not to match")
	}
	if EqualSecret("123456", "1234567") {
		t.Fatal("expected different lengths not to match")
	}
}
