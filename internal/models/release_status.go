package models

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
)

// ReleaseStatus is the display category of a backend release status code.
// The dashboard only reflects it; transitions happen on the distribution API.
type ReleaseStatus string

const (
	StatusDraft       ReleaseStatus = "draft"
	StatusPending     ReleaseStatus = "pending"
	StatusUnderReview ReleaseStatus = "under-review"
	StatusVerified    ReleaseStatus = "verified"
	StatusLive        ReleaseStatus = "live"
	StatusTakedown    ReleaseStatus = "takedown"
)

// Backend codes the dashboard sends itself
const (
	ReleaseStatusCodeDraft       = 1
	ReleaseStatusCodeUnderReview = 2
)

// AllReleaseStatuses lists every category in dashboard order
var AllReleaseStatuses = []ReleaseStatus{
	StatusDraft,
	StatusPending,
	StatusUnderReview,
	StatusVerified,
	StatusLive,
	StatusTakedown,
}

type statusEntry struct {
	status      ReleaseStatus
	description string
}

var releaseStatusCodes = map[int]statusEntry{
	1:  {StatusDraft, "draft"},
	2:  {StatusUnderReview, "under review"},
	3:  {StatusTakedown, "rejected"},
	4:  {StatusTakedown, "rejected"},
	5:  {StatusTakedown, "rejected"},
	6:  {StatusPending, "correction required"},
	7:  {StatusPending, "correction required"},
	8:  {StatusPending, "correction required"},
	9:  {StatusPending, "correction required"},
	10: {StatusPending, "correction required"},
	11: {StatusPending, "correction required"},
	12: {StatusPending, "correction required"},
	13: {StatusPending, "correction required"},
	14: {StatusPending, "correction required"},
	15: {StatusVerified, "verified"},
	16: {StatusLive, "live"},
	17: {StatusTakedown, "takedown requested"},
	18: {StatusTakedown, "taken down"},
	19: {StatusPending, "pending"},
}

// ReleaseStatusFromCode maps a backend status code to its category. Unknown codes
// return StatusDraft with ok=false; callers decide whether to log or reject.
func ReleaseStatusFromCode(code int) (status ReleaseStatus, ok bool) {
	entry, ok := releaseStatusCodes[code]
	if !ok {
		return StatusDraft, false
	}
	return entry.status, true
}

// DescribeReleaseStatus returns the finer label for a code
func DescribeReleaseStatus(code int) string {
	if entry, ok := releaseStatusCodes[code]; ok {
		return entry.description
	}
	return fmt.Sprintf("unknown status %d", code)
}

// ParseReleaseStatus parses a category name as used in query strings
func ParseReleaseStatus(s string) (ReleaseStatus, error) {
	for _, status := range AllReleaseStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", errors.Newf("unknown release status %q", s)
}

// Codes returns the backend codes that map to this category, ascending
func (s ReleaseStatus) Codes() []int {
	var codes []int
	for code, entry := range releaseStatusCodes {
		if entry.status == s {
			codes = append(codes, code)
		}
	}
	sort.Ints(codes)
	return codes
}

// CanEdit reports whether the edit form may be shown
func (s ReleaseStatus) CanEdit() bool {
	return s == StatusDraft
}

// CanSubmit reports whether "submit for review" may be shown
func (s ReleaseStatus) CanSubmit() bool {
	return s == StatusDraft
}
