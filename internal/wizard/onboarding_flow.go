package wizard

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/pkg/validation"
)

// Onboarding steps
const (
	StepProfile = iota + 1
	StepAddress
	StepBank
)

var onboardingStepNames = map[int]string{
	StepProfile: "profile",
	StepAddress: "address",
	StepBank:    "bank-kyc",
}

// OnboardingForm is the in-memory state of the KYC onboarding wizard
type OnboardingForm struct {
	Profile models.Profile     `json:"profile"`
	Address models.Address     `json:"address"`
	Bank    models.BankDetails `json:"bank"`
}

func (f *OnboardingForm) StepCount() int { return StepBank }

func (f *OnboardingForm) StepName(step int) string { return onboardingStepNames[step] }

func (f *OnboardingForm) Validate(step int) FieldErrors {
	switch step {
	case StepProfile:
		return ValidateProfile(f.Profile)
	case StepAddress:
		return ValidateAddress(f.Address)
	case StepBank:
		return ValidateBank(f.Bank)
	}
	return FieldErrors{"step": fmt.Sprintf("unknown step %d", step)}
}

// SetProfile overwrites the profile step
func (f *OnboardingForm) SetProfile(p models.Profile) {
	p.Name = validation.SanitizeString(p.Name)
	p.ArtistName = validation.SanitizeString(p.ArtistName)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)
	p.Country = strings.ToUpper(strings.TrimSpace(p.Country))
	f.Profile = p
}

// SetAddress overwrites the address step
func (f *OnboardingForm) SetAddress(a models.Address) {
	a.Line1 = validation.SanitizeString(a.Line1)
	a.Line2 = validation.SanitizeString(a.Line2)
	a.City = validation.SanitizeString(a.City)
	a.State = validation.SanitizeString(a.State)
	a.Pincode = strings.TrimSpace(a.Pincode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	f.Address = a
}

// SetBank overwrites the bank fields and keeps already staged documents
func (f *OnboardingForm) SetBank(b models.BankDetails) {
	b.AccountHolder = validation.SanitizeString(b.AccountHolder)
	b.AccountNumber = strings.TrimSpace(b.AccountNumber)
	b.BankName = validation.SanitizeString(b.BankName)
	b.IFSC = strings.ToUpper(strings.TrimSpace(b.IFSC))
	b.SWIFT = strings.ToUpper(strings.TrimSpace(b.SWIFT))
	b.Country = strings.ToUpper(strings.TrimSpace(b.Country))
	b.PAN = strings.ToUpper(strings.TrimSpace(b.PAN))
	b.IdentityDocument = f.Bank.IdentityDocument
	b.AddressProof = f.Bank.AddressProof
	f.Bank = b
}

// Document kinds accepted on the bank step
const (
	DocumentIdentity     = "identity_document"
	DocumentAddressProof = "address_proof"
)

// SetDocument stores a staged KYC document and returns the file it replaced
func (f *OnboardingForm) SetDocument(kind string, file *models.StagedFile) (*models.StagedFile, error) {
	var previous *models.StagedFile
	switch kind {
	case DocumentIdentity:
		previous, f.Bank.IdentityDocument = f.Bank.IdentityDocument, file
	case DocumentAddressProof:
		previous, f.Bank.AddressProof = f.Bank.AddressProof, file
	default:
		return nil, errors.Newf("unknown document kind %q", kind)
	}
	return previous, nil
}

// ValidateProfile checks the profile step
func ValidateProfile(p models.Profile) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(p.Name) == "" {
		errs.Add("name", "Name is required")
	}
	if p.Email == "" {
		errs.Add("email", "Email is required")
	} else if !validation.ValidateEmail(p.Email) {
		errs.Add("email", "Invalid email address")
	}
	if p.Phone == "" {
		errs.Add("phone", "Phone number is required")
	} else if !validation.ValidatePhone(p.Phone) {
		errs.Add("phone", "Invalid phone number")
	}
	if p.Country == "" {
		errs.Add("country", "Country is required")
	}
	return errs
}

// ValidateAddress checks the address step
func ValidateAddress(a models.Address) FieldErrors {
	errs := FieldErrors{}
	if a.Line1 == "" {
		errs.Add("line1", "Address is required")
	}
	if a.City == "" {
		errs.Add("city", "City is required")
	}
	if a.State == "" {
		errs.Add("state", "State is required")
	}
	if a.Pincode == "" {
		errs.Add("pincode", "Pincode is required")
	} else if !validation.ValidatePincode(a.Pincode) {
		errs.Add("pincode", "Pincode must be exactly 6 digits")
	}
	return errs
}

// ValidateBank checks the bank and KYC step
func ValidateBank(b models.BankDetails) FieldErrors {
	errs := FieldErrors{}
	if b.AccountHolder == "" {
		errs.Add("account_holder", "Account holder name is required")
	}
	if !validation.ValidateAccountNumber(b.AccountNumber) {
		errs.Add("account_number", "Account number must be 9 to 18 digits")
	}
	if b.BankName == "" {
		errs.Add("bank_name", "Bank name is required")
	}
	if b.Domestic() {
		if !validation.ValidateIFSC(b.IFSC) {
			errs.Add("ifsc", "Invalid IFSC code")
		}
	} else if !validation.ValidateSWIFT(b.SWIFT) {
		errs.Add("swift", "Invalid SWIFT code")
	}
	if b.IdentityDocument == nil || b.IdentityDocument.Key == "" {
		errs.Add(DocumentIdentity, "Identity document is required")
	}
	return errs
}
