package services

import (
	"context"
	"io"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/pkg/audio"
	"github.com/releasedesk/backend/internal/session"
	"github.com/releasedesk/backend/internal/wizard"
)

const stateRelease = "release"

var ErrReleaseNotCreated = errors.New("release has not been created yet")

// AudioProber inspects an uploaded track before it is staged
type AudioProber func(ctx context.Context, r io.Reader, ext string) (*audio.ProbeResult, error)

type releaseState struct {
	flowState
	Form wizard.ReleaseForm `json:"form"`
}

// ReleaseWizardView is the release wizard as returned to the browser
type ReleaseWizardView struct {
	wizard.Snapshot
	Form               wizard.ReleaseForm `json:"form"`
	SubmittedReleaseID string             `json:"submitted_release_id,omitempty"`
}

// WizardService runs the release wizard of a session. Each completed step is
// forwarded to the distribution API before the wizard advances past it.
type WizardService struct {
	upstream *UpstreamClient
	sessions session.Store
	staging  *StagingService
	audit    SubmissionRecorder
	probe    AudioProber
}

func NewWizardService(upstream *UpstreamClient, sessions session.Store, staging *StagingService, audit SubmissionRecorder, probe AudioProber) *WizardService {
	return &WizardService{
		upstream: upstream,
		sessions: sessions,
		staging:  staging,
		audit:    audit,
		probe:    probe,
	}
}

func (s *WizardService) load(ctx context.Context, sessionID string) (*releaseState, error) {
	st := &releaseState{}
	found, err := s.sessions.LoadState(ctx, sessionID, stateRelease, st)
	if err != nil {
		return nil, err
	}
	if !found || st.Current == 0 {
		st = &releaseState{flowState: flowState{Current: wizard.StepReleaseInfo}}
	}
	return st, nil
}

func (s *WizardService) view(st *releaseState) *ReleaseWizardView {
	c := wizard.Restore(&st.Form, st.Current, st.Errors)
	return &ReleaseWizardView{Snapshot: c.Snapshot(), Form: st.Form}
}

// update runs fn on the saved state under the session lock and saves the
// result even when fn fails, so field errors survive the request
func (s *WizardService) update(ctx context.Context, actor Actor, fn func(st *releaseState, c *wizard.Controller) error) (*ReleaseWizardView, error) {
	var view *ReleaseWizardView
	err := withSessionLock(ctx, s.sessions, actor.Session.ID, func() error {
		st, err := s.load(ctx, actor.Session.ID)
		if err != nil {
			return err
		}
		c := wizard.Restore(&st.Form, st.Current, st.Errors)
		fnErr := fn(st, c)
		st.capture(c)
		if err := s.sessions.SaveState(ctx, actor.Session.ID, stateRelease, st); err != nil {
			return err
		}
		view = s.view(st)
		return fnErr
	})
	return view, err
}

// Get returns the current wizard of the session, starting a new one if needed
func (s *WizardService) Get(ctx context.Context, actor Actor) (*ReleaseWizardView, error) {
	st, err := s.load(ctx, actor.Session.ID)
	if err != nil {
		return nil, err
	}
	return s.view(st), nil
}

// Reset discards the wizard and its staged files and starts at step 1
func (s *WizardService) Reset(ctx context.Context, actor Actor) (*ReleaseWizardView, error) {
	var view *ReleaseWizardView
	err := withSessionLock(ctx, s.sessions, actor.Session.ID, func() error {
		st, err := s.load(ctx, actor.Session.ID)
		if err != nil {
			return err
		}
		s.discard(ctx, stagedFiles(st.Form.Release)...)
		if err := s.sessions.DeleteState(ctx, actor.Session.ID, stateRelease); err != nil {
			return err
		}
		view = s.view(&releaseState{flowState: flowState{Current: wizard.StepReleaseInfo}})
		return nil
	})
	return view, err
}

func (s *WizardService) SetReleaseInfo(ctx context.Context, actor Actor, info wizard.ReleaseInfo) (*ReleaseWizardView, error) {
	return s.update(ctx, actor, func(st *releaseState, _ *wizard.Controller) error {
		st.Form.SetReleaseInfo(info)
		st.dirty(wizard.StepReleaseInfo)
		return nil
	})
}

func (s *WizardService) SetTracks(ctx context.Context, actor Actor, tracks []wizard.TrackDetails) (*ReleaseWizardView, error) {
	return s.update(ctx, actor, func(st *releaseState, _ *wizard.Controller) error {
		before := st.Form.Release.Tracks
		st.Form.SetTracks(tracks)
		st.dirty(wizard.StepTrackDetails)
		if len(before) != len(tracks) {
			st.dirty(wizard.StepArtistInfo, wizard.StepUpload)
		}
		// audio of dropped tracks is no longer referenced
		for i := len(tracks); i < len(before); i++ {
			s.discard(ctx, before[i].Audio)
		}
		return nil
	})
}

func (s *WizardService) SetTrackArtists(ctx context.Context, actor Actor, index int, artists wizard.TrackArtists) (*ReleaseWizardView, error) {
	return s.update(ctx, actor, func(st *releaseState, _ *wizard.Controller) error {
		if err := st.Form.SetTrackArtists(index, artists); err != nil {
			return err
		}
		st.dirty(wizard.StepArtistInfo)
		return nil
	})
}

func (s *WizardService) Confirm(ctx context.Context, actor Actor, confirmed bool, remark string) (*ReleaseWizardView, error) {
	return s.update(ctx, actor, func(st *releaseState, _ *wizard.Controller) error {
		st.Form.Confirm(confirmed, remark)
		return nil
	})
}

// AttachArtwork stages the cover image. Staging happens outside the session
// lock; the lock only covers swapping the reference.
func (s *WizardService) AttachArtwork(ctx context.Context, actor Actor, up Upload) (*ReleaseWizardView, error) {
	staged, err := s.staging.Stage(ctx, actor.Session.ID, KindArtwork, up.Filename, up.Size, up.Body)
	if err != nil {
		return nil, err
	}
	view, err := s.update(ctx, actor, func(st *releaseState, _ *wizard.Controller) error {
		s.discard(ctx, st.Form.Release.Artwork)
		st.Form.SetArtwork(staged)
		st.dirty(wizard.StepReleaseInfo)
		return nil
	})
	if err != nil {
		s.discard(ctx, staged)
	}
	return view, err
}

// AttachTrackAudio probes and stages the audio of one track
func (s *WizardService) AttachTrackAudio(ctx context.Context, actor Actor, index int, up Upload) (*ReleaseWizardView, error) {
	var duration int
	if s.probe != nil {
		res, err := s.probe(ctx, up.Body, up.ext())
		if err != nil {
			return nil, errors.Wrap(err, "inspect audio")
		}
		duration = res.Duration
		if _, err := up.Body.Seek(0, io.SeekStart); err != nil {
			return nil, errors.Wrap(err, "rewind upload")
		}
	}

	staged, err := s.staging.Stage(ctx, actor.Session.ID, KindAudio, up.Filename, up.Size, up.Body)
	if err != nil {
		return nil, err
	}
	staged.Duration = duration

	var previous *models.StagedFile
	view, err := s.update(ctx, actor, func(st *releaseState, _ *wizard.Controller) error {
		prev, err := st.Form.SetTrackAudio(index, staged)
		if err != nil {
			return err
		}
		previous = prev
		st.dirty(wizard.StepUpload)
		return nil
	})
	if err != nil {
		s.discard(ctx, staged)
		return view, err
	}
	s.discard(ctx, previous)
	return view, nil
}

// Next validates every step up to the current one, forwards those edited since
// they were last sent and advances. Submitting the review step sends the
// release for review and starts a fresh wizard.
func (s *WizardService) Next(ctx context.Context, actor Actor) (*ReleaseWizardView, error) {
	var finished *releaseState
	view, err := s.update(ctx, actor, func(st *releaseState, c *wizard.Controller) error {
		submit := st.submitter(wizard.StepReview, s.submitStep(ctx, actor, &st.Form))
		if err := c.NextWith(submit); err != nil {
			return err
		}
		if c.Current() == wizard.StepReview && st.Submitted[wizard.StepReview] {
			finished = st
		}
		return nil
	})
	if err != nil || finished == nil {
		return view, err
	}
	return s.finish(ctx, actor, finished)
}

func (s *WizardService) Previous(ctx context.Context, actor Actor) (*ReleaseWizardView, error) {
	return s.update(ctx, actor, func(_ *releaseState, c *wizard.Controller) error {
		return c.Previous()
	})
}

// JumpTo moves to step, forwarding any skipped step that was edited
func (s *WizardService) JumpTo(ctx context.Context, actor Actor, step int) (*ReleaseWizardView, error) {
	return s.update(ctx, actor, func(st *releaseState, c *wizard.Controller) error {
		return c.JumpToWith(step, st.submitter(wizard.StepReview, s.submitStep(ctx, actor, &st.Form)))
	})
}

func (s *WizardService) finish(ctx context.Context, actor Actor, st *releaseState) (*ReleaseWizardView, error) {
	err := withSessionLock(ctx, s.sessions, actor.Session.ID, func() error {
		return s.sessions.DeleteState(ctx, actor.Session.ID, stateRelease)
	})
	if err != nil {
		return nil, err
	}
	s.discard(ctx, stagedFiles(st.Form.Release)...)
	view := s.view(&releaseState{flowState: flowState{Current: wizard.StepReleaseInfo}})
	view.SubmittedReleaseID = st.Form.Release.RemoteID
	return view, nil
}

func (s *WizardService) submitStep(ctx context.Context, actor Actor, form *wizard.ReleaseForm) wizard.SubmitFunc {
	return func(step int) error {
		release := &form.Release
		if step != wizard.StepReleaseInfo && release.RemoteID == "" {
			return ErrReleaseNotCreated
		}
		switch step {
		case wizard.StepReleaseInfo:
			return s.createAlbum(ctx, actor, release)
		case wizard.StepTrackDetails:
			ids, err := s.upstream.AddTrackDetails(ctx, actor.token(), release.RemoteID, release.Tracks)
			record(ctx, s.audit, actor, ActionTrackDetails, TargetTypeAlbum, release.RemoteID, err, map[string]interface{}{"tracks": len(release.Tracks)})
			if err != nil {
				return err
			}
			for i := range release.Tracks {
				release.Tracks[i].RemoteID = ids[i]
			}
			return nil
		case wizard.StepArtistInfo:
			for _, t := range release.Tracks {
				err := s.upstream.AddTrackArtists(ctx, actor.token(), t.RemoteID, t.Credits())
				record(ctx, s.audit, actor, ActionTrackArtists, TargetTypeTrack, t.RemoteID, err, map[string]interface{}{"artists": len(t.Credits())})
				if err != nil {
					return err
				}
			}
			return nil
		case wizard.StepUpload:
			for _, t := range release.Tracks {
				if err := s.uploadAudio(ctx, actor, t); err != nil {
					return err
				}
			}
			return nil
		case wizard.StepReview:
			err := s.upstream.UpdateReleaseStatus(ctx, actor.token(), release.RemoteID, models.ReleaseStatusCodeUnderReview, form.Remark)
			record(ctx, s.audit, actor, ActionSubmitRelease, TargetTypeAlbum, release.RemoteID, err, nil)
			return err
		}
		return errors.Wrapf(wizard.ErrInvalidStep, "step %d", step)
	}
}

func (s *WizardService) createAlbum(ctx context.Context, actor Actor, release *models.Release) error {
	part, closer, err := s.staging.Open(ctx, "artwork", release.Artwork)
	if err != nil {
		return err
	}
	defer closer.Close()

	id, err := s.upstream.CreateAlbum(ctx, actor.token(), *release, part)
	record(ctx, s.audit, actor, ActionCreateAlbum, TargetTypeAlbum, id, err, map[string]interface{}{"title": release.Title})
	if err != nil {
		return err
	}
	release.RemoteID = id
	return nil
}

func (s *WizardService) uploadAudio(ctx context.Context, actor Actor, t models.Track) error {
	part, closer, err := s.staging.Open(ctx, "audio", t.Audio)
	if err != nil {
		return err
	}
	defer closer.Close()

	err = s.upstream.UploadTrackAudio(ctx, actor.token(), t.RemoteID, part)
	record(ctx, s.audit, actor, ActionTrackAudio, TargetTypeTrack, t.RemoteID, err, map[string]interface{}{"size_bytes": t.Audio.SizeBytes})
	return err
}

func (s *WizardService) discard(ctx context.Context, files ...*models.StagedFile) {
	if err := s.staging.Discard(ctx, files...); err != nil {
		log.WithError(err).Warn("could not discard staged files")
	}
}

func stagedFiles(r models.Release) []*models.StagedFile {
	files := []*models.StagedFile{r.Artwork}
	for _, t := range r.Tracks {
		files = append(files, t.Audio)
	}
	return files
}
