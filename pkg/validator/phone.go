package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates phone number length does not match its prefix
	ErrInvalidLength = errors.New("phone number must be 10 digits, or 11 digits for 011 and 015 numbers")

	// ErrInvalidPrefix indicates phone number doesn't start with a Malaysian mobile prefix
	ErrInvalidPrefix = errors.New("phone number must start with 010 to 019")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")
)

// countryCode is the Malaysian calling code
const countryCode = "60"

// validPrefixes maps Malaysian mobile prefixes to their national number length
var validPrefixes = map[string]int{
	"010": 10,
	"011": 11,
	"012": 10,
	"013": 10,
	"014": 10,
	"015": 11,
	"016": 10,
	"017": 10,
	"018": 10,
	"019": 10,
}

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator handles phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates a Malaysian mobile number.
// Accepts 0123456789, 012-345 6789 or +60123456789 and returns the national
// format (digits only, leading 0).
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if phone == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) < 3 {
		return "", ErrInvalidLength
	}

	if !v.IsValidPrefix(sanitized) {
		return "", ErrInvalidPrefix
	}

	if len(sanitized) != validPrefixes[sanitized[:3]] {
		return "", ErrInvalidLength
	}

	return sanitized, nil
}

// Sanitize removes separators and converts the international form to national
func (v *PhoneValidator) Sanitize(phone string) string {
	phone = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "", ".", "").Replace(phone)

	if strings.HasPrefix(phone, countryCode+"1") && (len(phone) == 11 || len(phone) == 12) {
		phone = "0" + phone[len(countryCode):]
	}

	return phone
}

// IsValidPrefix checks if phone number has a valid Malaysian mobile prefix
func (v *PhoneValidator) IsValidPrefix(phone string) bool {
	if len(phone) < 3 {
		return false
	}
	_, ok := validPrefixes[phone[:3]]
	return ok
}

// Format formats a phone number for display: 012-345 6789 or 011-2345 6789
func (v *PhoneValidator) Format(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}

	n := len(sanitized)
	return fmt.Sprintf("%s-%s %s", sanitized[0:3], sanitized[3:n-4], sanitized[n-4:]), nil
}

// International returns the number in E.164 form without the plus sign (60123456789)
func (v *PhoneValidator) International(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}
	return countryCode + sanitized[1:], nil
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}
