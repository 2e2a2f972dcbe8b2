package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnboardingPrefillsFromAccount(t *testing.T) {
	env := newTestEnv(t)
	s := NewOnboardingService(env.client, env.sessions, env.staging, env.recorder)

	view, err := s.Get(context.Background(), env.actor)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepProfile, view.Current)
	assert.Equal(t, "Asha Rao", view.Form.Profile.Name)
	assert.Equal(t, "asha@example.com", view.Form.Profile.Email)
	assert.False(t, view.Completed)
}

func TestOnboardingFullFlow(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.Handle(http.MethodPut, "/user/updateUser", okJSON(map[string]interface{}{
		"data": map[string]interface{}{"id": "user-1", "name": "Asha Rao", "email": "asha@example.com", "phone": "+919876543210", "country": "IN"},
	}))
	env.upstream.Handle(http.MethodPost, "/user/KYCVerification", okJSON(map[string]bool{"success": true}))
	s := NewOnboardingService(env.client, env.sessions, env.staging, env.recorder)
	ctx := context.Background()

	_, err := s.SetProfile(ctx, env.actor, models.Profile{Name: "Asha Rao", Email: "asha@example.com", Phone: "+919876543210", Country: "in", ArtistName: "Asha"})
	require.NoError(t, err)
	view, err := s.Next(ctx, env.actor)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepAddress, view.Current)

	var profile map[string]interface{}
	require.NoError(t, env.upstream.Requests("/user/updateUser")[0].DecodeJSON(&profile))
	assert.Equal(t, "Asha", profile["artistName"])
	assert.Equal(t, "IN", profile["country"])
	assert.NotContains(t, profile, "dateOfBirth")

	stored, err := env.sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", stored.User.Phone)

	_, err = s.SetAddress(ctx, env.actor, models.Address{Line1: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001", Country: "IN"})
	require.NoError(t, err)
	_, err = s.Next(ctx, env.actor)
	require.NoError(t, err)

	_, err = s.SetBank(ctx, env.actor, models.BankDetails{AccountHolder: "Asha Rao", AccountNumber: "123456789012", BankName: "SBI", IFSC: "sbin0001234", PAN: "abcde1234f"})
	require.NoError(t, err)

	// identity document is required on the bank step
	view, err = s.Next(ctx, env.actor)
	assert.ErrorIs(t, err, wizard.ErrStepIncomplete)
	assert.Contains(t, view.Errors, wizard.DocumentIdentity)

	_, err = s.AttachDocument(ctx, env.actor, wizard.DocumentIdentity, upload("pan.pdf", pdfBytes))
	require.NoError(t, err)
	view, err = s.Next(ctx, env.actor)
	require.NoError(t, err)
	assert.True(t, view.Completed)

	kyc := env.upstream.Requests("/user/KYCVerification")
	require.Len(t, kyc, 1)
	assert.Equal(t, "SBIN0001234", kyc[0].Form["ifsc"])
	assert.NotContains(t, kyc[0].Form, "swift")
	assert.Equal(t, "ABCDE1234F", kyc[0].Form["pan"])
	assert.Equal(t, "560001", kyc[0].Form["pincode"])
	assert.Equal(t, pdfBytes, kyc[0].Files["identityDocument"])
	assert.NotContains(t, kyc[0].Files, "addressProof")

	stored, err = env.sessions.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, stored.User.IsOnboarded)
	assert.False(t, env.sessions.HasState("sess-1", stateOnboarding))
	assert.Empty(t, env.objects.Keys())
	assert.Equal(t, []string{ActionUpdateProfile, ActionKYC}, env.recorder.Actions())
}

func TestOnboardingKYCFailureKeepsDocuments(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.JSON(http.MethodPost, "/user/KYCVerification", http.StatusBadRequest, map[string]string{"message": "PAN does not match name"})
	s := NewOnboardingService(env.client, env.sessions, env.staging, env.recorder)
	ctx := context.Background()

	_, err := s.SetAddress(ctx, env.actor, models.Address{Line1: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001"})
	require.NoError(t, err)
	_, err = s.SetBank(ctx, env.actor, models.BankDetails{AccountHolder: "Asha Rao", AccountNumber: "123456789012", BankName: "SBI", IFSC: "SBIN0001234"})
	require.NoError(t, err)
	_, err = s.AttachDocument(ctx, env.actor, wizard.DocumentIdentity, upload("id.pdf", pdfBytes))
	require.NoError(t, err)

	// the address step has no upstream call, so jumping past it only validates
	_, err = s.JumpTo(ctx, env.actor, wizard.StepAddress)
	assert.ErrorIs(t, err, wizard.ErrStepIncomplete, "profile has no phone yet")

	_, err = s.SetProfile(ctx, env.actor, models.Profile{Name: "Asha Rao", Email: "asha@example.com", Phone: "+919876543210", Country: "IN"})
	require.NoError(t, err)
	env.upstream.Handle(http.MethodPut, "/user/updateUser", okJSON(map[string]interface{}{"data": map[string]string{"id": "user-1", "name": "Asha Rao"}}))
	view, err := s.JumpTo(ctx, env.actor, wizard.StepBank)
	require.NoError(t, err)
	assert.Equal(t, wizard.StepBank, view.Current)

	view, err = s.Next(ctx, env.actor)
	assert.EqualError(t, err, "PAN does not match name")
	assert.Equal(t, wizard.StepBank, view.Current)
	assert.False(t, view.Completed)
	assert.Len(t, env.objects.Keys(), 1)
}

func TestOnboardingReplacesDocument(t *testing.T) {
	env := newTestEnv(t)
	s := NewOnboardingService(env.client, env.sessions, env.staging, env.recorder)
	ctx := context.Background()

	_, err := s.AttachDocument(ctx, env.actor, wizard.DocumentAddressProof, upload("bill.pdf", pdfBytes))
	require.NoError(t, err)
	view, err := s.AttachDocument(ctx, env.actor, wizard.DocumentAddressProof, upload("bill.png", pngBytes))
	require.NoError(t, err)
	assert.Equal(t, "image/png", view.Form.Bank.AddressProof.MimeType)
	assert.Equal(t, []string{view.Form.Bank.AddressProof.Key}, env.objects.Keys())

	_, err = s.AttachDocument(ctx, env.actor, "selfie", upload("me.png", pngBytes))
	var fe wizard.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "kind")

	view, err = s.Reset(ctx, env.actor)
	require.NoError(t, err)
	assert.Nil(t, view.Form.Bank.AddressProof)
	assert.Empty(t, env.objects.Keys())
}

func TestOnboardingProfileEditedOnBankStepIsSent(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.Handle(http.MethodPut, "/user/updateUser", okJSON(map[string]interface{}{"data": map[string]string{"id": "user-1", "name": "Asha Rao"}}))
	env.upstream.Handle(http.MethodPost, "/user/KYCVerification", okJSON(map[string]bool{"success": true}))
	s := NewOnboardingService(env.client, env.sessions, env.staging, env.recorder)
	ctx := context.Background()

	_, err := s.SetProfile(ctx, env.actor, models.Profile{Name: "Asha Rao", Email: "asha@example.com", Phone: "+919876543210", Country: "IN"})
	require.NoError(t, err)
	_, err = s.SetAddress(ctx, env.actor, models.Address{Line1: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001", Country: "IN"})
	require.NoError(t, err)
	_, err = s.JumpTo(ctx, env.actor, wizard.StepBank)
	require.NoError(t, err)
	_, err = s.SetBank(ctx, env.actor, models.BankDetails{AccountHolder: "Asha Rao", AccountNumber: "123456789012", BankName: "SBI", IFSC: "SBIN0001234"})
	require.NoError(t, err)
	_, err = s.AttachDocument(ctx, env.actor, wizard.DocumentIdentity, upload("id.pdf", pdfBytes))
	require.NoError(t, err)

	// an invalid edit sends the wizard back to the profile step
	_, err = s.SetProfile(ctx, env.actor, models.Profile{Name: "Asha Rao", Email: "asha@example.com", Country: "IN"})
	require.NoError(t, err)
	view, err := s.Next(ctx, env.actor)
	assert.ErrorIs(t, err, wizard.ErrStepIncomplete)
	assert.Equal(t, wizard.StepProfile, view.Current)
	assert.Empty(t, env.upstream.Requests("/user/KYCVerification"))

	_, err = s.SetProfile(ctx, env.actor, models.Profile{Name: "Asha Rao", Email: "asha@example.com", Phone: "+919800000000", Country: "IN"})
	require.NoError(t, err)
	_, err = s.JumpTo(ctx, env.actor, wizard.StepBank)
	require.NoError(t, err)
	view, err = s.Next(ctx, env.actor)
	require.NoError(t, err)
	assert.True(t, view.Completed)

	updates := env.upstream.Requests("/user/updateUser")
	require.Len(t, updates, 2)
	var profile map[string]interface{}
	require.NoError(t, updates[1].DecodeJSON(&profile))
	assert.Equal(t, "+919800000000", profile["phone"])
	assert.Len(t, env.upstream.Requests("/user/KYCVerification"), 1)
}
