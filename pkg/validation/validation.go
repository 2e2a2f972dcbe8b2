package validation

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var (
	emailRegex   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*\.[a-zA-Z]{2,}$`)
	phoneRegex   = regexp.MustCompile(`^\+?[1-9][0-9]{9,14}$`)
	pincodeRegex = regexp.MustCompile(`^[0-9]{6}$`)
	ifscRegex    = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)
	swiftRegex   = regexp.MustCompile(`^[A-Z]{4}[A-Z]{2}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
	isrcRegex    = regexp.MustCompile(`^[A-Z]{2}-?[A-Z0-9]{3}-?[0-9]{2}-?[0-9]{5}$`)
	accountRegex = regexp.MustCompile(`^[0-9]{9,18}$`)
)

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(strings.ToLower(email))
	if strings.Contains(email, "..") {
		return false
	}
	return emailRegex.MatchString(email)
}

// ValidatePassword validates password strength: at least 8 characters with
// upper, lower, digit and special characters.
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	return hasUpper && hasLower && hasNumber && hasSpecial
}

// ValidatePhone accepts E.164-like numbers, spaces and dashes are ignored
func ValidatePhone(phone string) bool {
	phone = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	return phoneRegex.MatchString(phone)
}

// ValidatePincode validates a 6 digit postal code
func ValidatePincode(pincode string) bool {
	return pincodeRegex.MatchString(strings.TrimSpace(pincode))
}

// ValidateIFSC validates an Indian bank branch code (4 letters, a zero, 6 alphanumerics)
func ValidateIFSC(code string) bool {
	return ifscRegex.MatchString(strings.TrimSpace(code))
}

// ValidateSWIFT validates a BIC/SWIFT code
func ValidateSWIFT(code string) bool {
	return swiftRegex.MatchString(strings.TrimSpace(code))
}

// ValidateISRC validates an ISRC, with or without the dashes
func ValidateISRC(code string) bool {
	return isrcRegex.MatchString(strings.ToUpper(strings.TrimSpace(code)))
}

// ValidateAccountNumber validates a bank account number
func ValidateAccountNumber(number string) bool {
	return accountRegex.MatchString(strings.TrimSpace(number))
}

// ValidateURL checks for an absolute http(s) URL
func ValidateURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ArtistOverlap returns the ids present in both lists, in primary order
func ArtistOverlap(primary, featuring []string) []string {
	seen := make(map[string]bool, len(featuring))
	for _, id := range featuring {
		seen[id] = true
	}
	var overlap []string
	for _, id := range primary {
		if seen[id] {
			overlap = append(overlap, id)
			delete(seen, id)
		}
	}
	return overlap
}

// SanitizeString removes potentially harmful characters
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
