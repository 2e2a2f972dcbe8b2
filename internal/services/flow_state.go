package services

import (
	"context"
	"io"
	"path/filepath"

	"github.com/releasedesk/backend/internal/session"
	"github.com/releasedesk/backend/internal/wizard"
)

// Upload is a file received from the browser
type Upload struct {
	Filename string
	Size     int64
	Body     io.ReadSeeker
}

func (u Upload) ext() string {
	return filepath.Ext(u.Filename)
}

// flowState is the navigation part of a saved wizard. Submitted marks steps
// whose data the distribution API already has; editing a step clears its mark.
type flowState struct {
	Current   int                `json:"current"`
	Errors    wizard.FieldErrors `json:"errors,omitempty"`
	Submitted map[int]bool       `json:"submitted,omitempty"`
}

func (f *flowState) dirty(steps ...int) {
	for _, s := range steps {
		delete(f.Submitted, s)
	}
}

func (f *flowState) capture(c *wizard.Controller) {
	f.Current = c.Current()
	f.Errors = c.Errors()
}

// submitter skips steps already submitted, except always the last one
func (f *flowState) submitter(last int, submit wizard.SubmitFunc) wizard.SubmitFunc {
	return func(step int) error {
		if step != last && f.Submitted[step] {
			return nil
		}
		if err := submit(step); err != nil {
			return err
		}
		if f.Submitted == nil {
			f.Submitted = map[int]bool{}
		}
		f.Submitted[step] = true
		return nil
	}
}

// withSessionLock serializes read-modify-write of one session's wizard state
func withSessionLock(ctx context.Context, store session.Store, sessionID string, fn func() error) error {
	unlock, err := store.Lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}
