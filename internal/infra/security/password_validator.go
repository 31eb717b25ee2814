package security

import (
	"fmt"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError represents a single password policy violation.
type PasswordValidationError struct {
	Code    string
	Message string
}

// Error implements error for PasswordValidationError.
func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule validates a password according to a specific policy rule.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to be used as a PasswordRule.
type PasswordRuleFunc func(password string) error

// Validate executes the underlying rule function.
func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator applies a sequence of password rules.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// DefaultPasswordValidator returns the registration/change-password policy:
// at least 8 characters drawn from 3 character classes, with a zxcvbn floor.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(8),
		RequireCharacterClassesRule(3),
		RequirePasswordStrengthRule(2),
	)
}

// Validate executes all rules and returns the first encountered violation.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// MinLengthRule ensures the password has at least min characters.
func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if len([]rune(password)) < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		return nil
	})
}

// RequireCharacterClassesRule ensures the password contains characters from at
// least min distinct classes (upper, lower, digit, symbol).
func RequireCharacterClassesRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if min <= 0 {
			return nil
		}
		classes := classifyCharacters(password)

		count := 0
		for _, present := range []bool{classes.upper, classes.lower, classes.digit, classes.symbol} {
			if present {
				count++
			}
		}

		if count >= min {
			return nil
		}

		return &PasswordValidationError{
			Code:    "character_classes",
			Message: fmt.Sprintf("password must include at least %d character types", min),
		}
	})
}

// RequirePasswordStrengthRule enforces a minimum zxcvbn score to reject weak passwords.
func RequirePasswordStrengthRule(minScore int, userInputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}

		result := zxcvbn.PasswordStrength(password, userInputs)
		if result.Score >= minScore {
			return nil
		}

		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too weak; choose a more complex value",
		}
	})
}

type characterClasses struct {
	upper  bool
	lower  bool
	digit  bool
	symbol bool
	length int
}

func classifyCharacters(password string) characterClasses {
	var c characterClasses
	for _, r := range password {
		c.length++
		switch {
		case unicode.IsUpper(r):
			c.upper = true
		case unicode.IsLower(r):
			c.lower = true
		case unicode.IsDigit(r):
			c.digit = true
		case unicode.IsSymbol(r) || unicode.IsPunct(r):
			c.symbol = true
		}
	}
	return c
}

// StrengthReport summarizes a candidate password for the strength endpoint.
type StrengthReport struct {
	Score        int      `json:"score"`
	Level        string   `json:"level"`
	Length       int      `json:"length"`
	HasUppercase bool     `json:"has_uppercase"`
	HasLowercase bool     `json:"has_lowercase"`
	HasDigit     bool     `json:"has_digit"`
	HasSpecial   bool     `json:"has_special"`
	Feedback     []string `json:"feedback"`
}

// AssessStrength combines zxcvbn scoring with character-class analysis and
// actionable feedback for the interactive strength meter.
func AssessStrength(password string, userInputs ...string) StrengthReport {
	classes := classifyCharacters(password)

	report := StrengthReport{
		Score:        zxcvbn.PasswordStrength(password, userInputs).Score,
		Length:       classes.length,
		HasUppercase: classes.upper,
		HasLowercase: classes.lower,
		HasDigit:     classes.digit,
		HasSpecial:   classes.symbol,
		Feedback:     []string{},
	}

	if !classes.upper {
		report.Feedback = append(report.Feedback, "Add uppercase letters")
	}
	if !classes.lower {
		report.Feedback = append(report.Feedback, "Add lowercase letters")
	}
	if !classes.digit {
		report.Feedback = append(report.Feedback, "Add numbers")
	}
	if !classes.symbol {
		report.Feedback = append(report.Feedback, "Add special characters")
	}
	if classes.length < 8 {
		report.Feedback = append(report.Feedback, "Use at least 8 characters")
	}

	switch {
	case report.Score <= 1:
		report.Level = "weak"
	case report.Score <= 3:
		report.Level = "medium"
	default:
		report.Level = "strong"
	}

	return report
}
