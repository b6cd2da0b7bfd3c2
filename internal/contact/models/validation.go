package models

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	dErrors "contactbook/pkg/domain-errors"
)

// Field names used in validation errors and stored documents.
const (
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldPhoneNumber = "phone_number"
	FieldAddress     = "address"
)

// asciiPunctuation mirrors the printable ASCII punctuation set.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// allowedNamePunctuation is the subset of punctuation permitted in names.
const allowedNamePunctuation = "'-"

// frenchPhonePattern accepts +33 / +33 (0) / 0 prefixes followed by a 9 digit
// national number, either unseparated, grouped 1-2-2-2-2, or grouped 3-3-3.
// Each group may carry its own space, dot or hyphen separator.
var frenchPhonePattern = regexp.MustCompile(
	`^` +
		`(?:\+33(?:[ .-]?\(0\))?[ .-]?|0)` +
		`(?:` +
		`\d{9}` +
		`|(?:[ .-]?\d)(?:[ .-]?\d{2}){4}` +
		`|(?:[ .-]?\d{3}){3}` +
		`)` +
		`$`,
)

// ValidationError reports a field whose value does not satisfy its grammar.
// It carries the offending value for diagnostics.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	switch e.Field {
	case FieldPhoneNumber:
		return fmt.Sprintf("phone number %q is not valid", e.Value)
	default:
		return fmt.Sprintf("name %q is not valid", e.Value)
	}
}

// DomainCode lets transports classify the error without importing this package.
func (e *ValidationError) DomainCode() dErrors.Code {
	return dErrors.CodeValidation
}

// ValidateName accepts a non-empty name made of anything but digits and ASCII
// punctuation other than apostrophe and hyphen. The name is returned unchanged.
func ValidateName(name string) (string, error) {
	return validateName("name", name)
}

func validateName(field, name string) (string, error) {
	if name == "" {
		return "", &ValidationError{Field: field, Value: name}
	}
	for _, r := range name {
		if unicode.IsDigit(r) {
			return "", &ValidationError{Field: field, Value: name}
		}
		if r < unicode.MaxASCII && strings.ContainsRune(asciiPunctuation, r) && !strings.ContainsRune(allowedNamePunctuation, r) {
			return "", &ValidationError{Field: field, Value: name}
		}
	}
	return name, nil
}

// ValidatePhone accepts an empty string or a French phone number. The input is
// returned unchanged; no reformatting happens.
func ValidatePhone(phone string) (string, error) {
	if phone == "" {
		return "", nil
	}
	if !frenchPhonePattern.MatchString(phone) {
		return "", &ValidationError{Field: FieldPhoneNumber, Value: phone}
	}
	return phone, nil
}
