package services

import (
	"context"
	"io"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/session"
	"github.com/releasedesk/backend/internal/wizard"
)

const stateOnboarding = "onboarding"

type onboardingState struct {
	flowState
	Form wizard.OnboardingForm `json:"form"`
}

// OnboardingView is the onboarding wizard as returned to the browser
type OnboardingView struct {
	wizard.Snapshot
	Form      wizard.OnboardingForm `json:"form"`
	Completed bool                  `json:"completed"`
}

// OnboardingService runs the KYC onboarding wizard. The profile step updates the
// user upstream; the bank step submits the whole KYC package with documents.
type OnboardingService struct {
	upstream *UpstreamClient
	sessions session.Store
	staging  *StagingService
	audit    SubmissionRecorder
}

func NewOnboardingService(upstream *UpstreamClient, sessions session.Store, staging *StagingService, audit SubmissionRecorder) *OnboardingService {
	return &OnboardingService{
		upstream: upstream,
		sessions: sessions,
		staging:  staging,
		audit:    audit,
	}
}

func (s *OnboardingService) load(ctx context.Context, sess *models.Session) (*onboardingState, error) {
	st := &onboardingState{}
	found, err := s.sessions.LoadState(ctx, sess.ID, stateOnboarding, st)
	if err != nil {
		return nil, err
	}
	if !found || st.Current == 0 {
		st = &onboardingState{flowState: flowState{Current: wizard.StepProfile}}
		// prefill from the account
		st.Form.SetProfile(models.Profile{
			Name:    sess.User.Name,
			Email:   sess.User.Email,
			Phone:   sess.User.Phone,
			Country: sess.User.Country,
		})
	}
	return st, nil
}

func (s *OnboardingService) view(st *onboardingState, sess *models.Session) *OnboardingView {
	c := wizard.Restore(&st.Form, st.Current, st.Errors)
	return &OnboardingView{Snapshot: c.Snapshot(), Form: st.Form, Completed: sess.User.IsOnboarded}
}

func (s *OnboardingService) update(ctx context.Context, actor Actor, fn func(st *onboardingState, c *wizard.Controller) error) (*OnboardingView, error) {
	var view *OnboardingView
	err := withSessionLock(ctx, s.sessions, actor.Session.ID, func() error {
		st, err := s.load(ctx, actor.Session)
		if err != nil {
			return err
		}
		c := wizard.Restore(&st.Form, st.Current, st.Errors)
		fnErr := fn(st, c)
		st.capture(c)
		if err := s.sessions.SaveState(ctx, actor.Session.ID, stateOnboarding, st); err != nil {
			return err
		}
		view = s.view(st, actor.Session)
		return fnErr
	})
	return view, err
}

func (s *OnboardingService) Get(ctx context.Context, actor Actor) (*OnboardingView, error) {
	st, err := s.load(ctx, actor.Session)
	if err != nil {
		return nil, err
	}
	return s.view(st, actor.Session), nil
}

// Reset discards the onboarding form and its documents
func (s *OnboardingService) Reset(ctx context.Context, actor Actor) (*OnboardingView, error) {
	var view *OnboardingView
	err := withSessionLock(ctx, s.sessions, actor.Session.ID, func() error {
		st, err := s.load(ctx, actor.Session)
		if err != nil {
			return err
		}
		s.discard(ctx, st.Form.Bank.IdentityDocument, st.Form.Bank.AddressProof)
		if err := s.sessions.DeleteState(ctx, actor.Session.ID, stateOnboarding); err != nil {
			return err
		}
		fresh, err := s.load(ctx, actor.Session)
		if err != nil {
			return err
		}
		view = s.view(fresh, actor.Session)
		return nil
	})
	return view, err
}

// SetProfile overwrites the profile step
func (s *OnboardingService) SetProfile(ctx context.Context, actor Actor, p models.Profile) (*OnboardingView, error) {
	return s.update(ctx, actor, func(st *onboardingState, _ *wizard.Controller) error {
		st.Form.SetProfile(p)
		st.dirty(wizard.StepProfile)
		return nil
	})
}

func (s *OnboardingService) SetAddress(ctx context.Context, actor Actor, a models.Address) (*OnboardingView, error) {
	return s.update(ctx, actor, func(st *onboardingState, _ *wizard.Controller) error {
		st.Form.SetAddress(a)
		st.dirty(wizard.StepAddress)
		return nil
	})
}

func (s *OnboardingService) SetBank(ctx context.Context, actor Actor, b models.BankDetails) (*OnboardingView, error) {
	return s.update(ctx, actor, func(st *onboardingState, _ *wizard.Controller) error {
		st.Form.SetBank(b)
		return nil
	})
}

// AttachDocument stages a KYC document of kind
func (s *OnboardingService) AttachDocument(ctx context.Context, actor Actor, kind string, up Upload) (*OnboardingView, error) {
	if kind != wizard.DocumentIdentity && kind != wizard.DocumentAddressProof {
		return nil, wizard.FieldErrors{"kind": "Unknown document kind"}
	}
	staged, err := s.staging.Stage(ctx, actor.Session.ID, KindDocument, up.Filename, up.Size, up.Body)
	if err != nil {
		return nil, err
	}

	var previous *models.StagedFile
	view, err := s.update(ctx, actor, func(st *onboardingState, _ *wizard.Controller) error {
		prev, err := st.Form.SetDocument(kind, staged)
		previous = prev
		return err
	})
	if err != nil {
		s.discard(ctx, staged)
		return view, err
	}
	s.discard(ctx, previous)
	return view, nil
}

// Next validates every step up to the current one and forwards the edited
// ones. Completing the bank step marks the account onboarded and clears the
// form.
func (s *OnboardingService) Next(ctx context.Context, actor Actor) (*OnboardingView, error) {
	var finished *onboardingState
	view, err := s.update(ctx, actor, func(st *onboardingState, c *wizard.Controller) error {
		if err := c.NextWith(st.submitter(wizard.StepBank, s.submitStep(ctx, actor, &st.Form))); err != nil {
			return err
		}
		if c.Current() == wizard.StepBank && st.Submitted[wizard.StepBank] {
			finished = st
		}
		return nil
	})
	if err != nil || finished == nil {
		return view, err
	}

	err = withSessionLock(ctx, s.sessions, actor.Session.ID, func() error {
		return s.sessions.DeleteState(ctx, actor.Session.ID, stateOnboarding)
	})
	if err != nil {
		return nil, err
	}
	s.discard(ctx, finished.Form.Bank.IdentityDocument, finished.Form.Bank.AddressProof)
	view.Completed = true
	return view, nil
}

func (s *OnboardingService) Previous(ctx context.Context, actor Actor) (*OnboardingView, error) {
	return s.update(ctx, actor, func(_ *onboardingState, c *wizard.Controller) error {
		return c.Previous()
	})
}

func (s *OnboardingService) JumpTo(ctx context.Context, actor Actor, step int) (*OnboardingView, error) {
	return s.update(ctx, actor, func(st *onboardingState, c *wizard.Controller) error {
		return c.JumpToWith(step, st.submitter(wizard.StepBank, s.submitStep(ctx, actor, &st.Form)))
	})
}

func (s *OnboardingService) submitStep(ctx context.Context, actor Actor, form *wizard.OnboardingForm) wizard.SubmitFunc {
	return func(step int) error {
		switch step {
		case wizard.StepProfile:
			p := form.Profile
			fields := map[string]interface{}{
				"name":    p.Name,
				"phone":   p.Phone,
				"country": p.Country,
			}
			if p.ArtistName != "" {
				fields["artistName"] = p.ArtistName
			}
			if p.DateOfBirth != "" {
				fields["dateOfBirth"] = p.DateOfBirth
			}
			user, err := s.upstream.UpdateUser(ctx, actor.token(), fields)
			record(ctx, s.audit, actor, ActionUpdateProfile, TargetTypeUser, actor.Session.UserID, err, nil)
			if err != nil {
				return err
			}
			actor.Session.User = *user
			return s.sessions.Save(ctx, actor.Session)
		case wizard.StepAddress:
			// sent with the KYC package
			return nil
		case wizard.StepBank:
			return s.submitKYC(ctx, actor, form)
		}
		return errors.Wrapf(wizard.ErrInvalidStep, "step %d", step)
	}
}

func (s *OnboardingService) submitKYC(ctx context.Context, actor Actor, form *wizard.OnboardingForm) error {
	a, b := form.Address, form.Bank
	fields := map[string]string{
		"addressLine1":  a.Line1,
		"addressLine2":  a.Line2,
		"city":          a.City,
		"state":         a.State,
		"pincode":       a.Pincode,
		"country":       a.Country,
		"accountHolder": b.AccountHolder,
		"accountNumber": b.AccountNumber,
		"bankName":      b.BankName,
		"bankCountry":   b.Country,
	}
	if b.Domestic() {
		fields["ifsc"] = b.IFSC
	} else {
		fields["swift"] = b.SWIFT
	}
	if b.PAN != "" {
		fields["pan"] = b.PAN
	}

	var files []FilePart
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	docs := []struct {
		field string
		file  *models.StagedFile
	}{
		{"identityDocument", b.IdentityDocument},
		{"addressProof", b.AddressProof},
	}
	for _, doc := range docs {
		if doc.file == nil {
			continue
		}
		part, closer, err := s.staging.Open(ctx, doc.field, doc.file)
		if err != nil {
			return err
		}
		files = append(files, part)
		closers = append(closers, closer)
	}

	err := s.upstream.SubmitKYC(ctx, actor.token(), fields, files)
	record(ctx, s.audit, actor, ActionKYC, TargetTypeUser, actor.Session.UserID, err, map[string]interface{}{"documents": len(files)})
	if err != nil {
		return err
	}
	actor.Session.User.IsOnboarded = true
	return s.sessions.Save(ctx, actor.Session)
}

func (s *OnboardingService) discard(ctx context.Context, files ...*models.StagedFile) {
	if err := s.staging.Discard(ctx, files...); err != nil {
		log.WithError(err).Warn("could not discard staged documents")
	}
}
