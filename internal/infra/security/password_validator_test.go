package security

import (
	"errors"
	"testing"
)

func TestDefaultPasswordValidatorAcceptsStrongPassword(t *testing.T) {
	validator := DefaultPasswordValidator()

	if err := validator.Validate("V4lid!Passphrase#91"); err != nil {
		t.Fatalf("expected strong password to pass, got %v", err)
	}
}

func TestMinLengthRule(t *testing.T) {
	validator := NewPasswordValidator(MinLengthRule(8))

	err := validator.Validate("short1!")
	if err == nil {
		t.Fatal("expected short password to be rejected")
	}

	var violation *PasswordValidationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected PasswordValidationError, got %T", err)
	}
	if violation.Code != "min_length" {
		t.Fatalf("expected min_length code, got %s", violation.Code)
	}
}

func TestRequireCharacterClassesRule(t *testing.T) {
	validator := NewPasswordValidator(RequireCharacterClassesRule(3))

	if err := validator.Validate("alllowercase"); err == nil {
		t.Fatal("expected single-class password to be rejected")
	}
	if err := validator.Validate("Upper1lower"); err != nil {
		t.Fatalf("expected three-class password to pass, got %v", err)
	}
}

func TestRequirePasswordStrengthRuleRejectsCommonPassword(t *testing.T) {
	validator := NewPasswordValidator(RequirePasswordStrengthRule(2))

	if err := validator.Validate("password123"); err == nil {
		t.Fatal("expected common password to be rejected by zxcvbn rule")
	}
}

func TestAssessStrengthFeedback(t *testing.T) {
	report := AssessStrength("abc")

	if report.Level != "weak" {
		t.Fatalf("expected weak level, got %s", report.Level)
	}
	if report.HasUppercase || report.HasDigit || report.HasSpecial {
		t.Fatal("unexpected character classes reported")
	}
	if len(report.Feedback) == 0 {
		t.Fatal("expected feedback for weak password")
	}
}

func TestAssessStrengthStrongPassword(t *testing.T) {
	report := AssessStrength("V4lid!Passphrase#91")

	if report.Level == "weak" {
		t.Fatal("expected non-weak level for complex password")
	}
	if !report.HasUppercase || !report.HasLowercase || !report.HasDigit || !report.HasSpecial {
		t.Fatal("expected all character classes to be detected")
	}
	if len(report.Feedback) != 0 {
		t.Fatalf("expected no feedback, got %v", report.Feedback)
	}
}
