package models

// Profile is the first onboarding step
type Profile struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	ArtistName  string `json:"artist_name,omitempty"`
	Country     string `json:"country"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
}

// Address is the second onboarding step
type Address struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

// BankDetails and the identity documents make up the KYC step. Domestic accounts
// use an IFSC code, international accounts a SWIFT code.
type BankDetails struct {
	AccountHolder    string      `json:"account_holder"`
	AccountNumber    string      `json:"account_number"`
	BankName         string      `json:"bank_name"`
	IFSC             string      `json:"ifsc,omitempty"`
	SWIFT            string      `json:"swift,omitempty"`
	Country          string      `json:"country"`
	PAN              string      `json:"pan,omitempty"`
	IdentityDocument *StagedFile `json:"identity_document,omitempty"`
	AddressProof     *StagedFile `json:"address_proof,omitempty"`
}

// Domestic reports whether the account needs an IFSC rather than a SWIFT code
func (b BankDetails) Domestic() bool {
	return b.Country == "" || b.Country == "IN"
}
