package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseStatusFromCode(t *testing.T) {
	tests := []struct {
		code   int
		status ReleaseStatus
	}{
		{1, StatusDraft},
		{2, StatusUnderReview},
		{3, StatusTakedown},
		{5, StatusTakedown},
		{6, StatusPending},
		{14, StatusPending},
		{15, StatusVerified},
		{16, StatusLive},
		{17, StatusTakedown},
		{18, StatusTakedown},
		{19, StatusPending},
	}
	for _, tt := range tests {
		status, ok := ReleaseStatusFromCode(tt.code)
		assert.True(t, ok, "code %d", tt.code)
		assert.Equal(t, tt.status, status, "code %d", tt.code)
	}
}

func TestReleaseStatusFromUnknownCode(t *testing.T) {
	for _, code := range []int{0, -1, 20, 999} {
		status, ok := ReleaseStatusFromCode(code)
		assert.False(t, ok)
		assert.Equal(t, StatusDraft, status)
		assert.Contains(t, DescribeReleaseStatus(code), "unknown")
	}
}

func TestEveryStatusHasCodes(t *testing.T) {
	for _, status := range AllReleaseStatuses {
		assert.NotEmpty(t, status.Codes(), status)
	}
	assert.Equal(t, []int{6, 7, 8, 9, 10, 11, 12, 13, 14, 19}, StatusPending.Codes())
	assert.Equal(t, []int{16}, StatusLive.Codes())
}

func TestCodesCoverContiguousRange(t *testing.T) {
	for code := 1; code <= 19; code++ {
		_, ok := ReleaseStatusFromCode(code)
		assert.True(t, ok, "code %d", code)
	}
}

func TestEditAndSubmitGating(t *testing.T) {
	for _, status := range AllReleaseStatuses {
		assert.Equal(t, status == StatusDraft, status.CanEdit(), status)
		assert.Equal(t, status == StatusDraft, status.CanSubmit(), status)
	}
}

func TestParseReleaseStatus(t *testing.T) {
	status, err := ParseReleaseStatus("under-review")
	require.NoError(t, err)
	assert.Equal(t, StatusUnderReview, status)

	_, err = ParseReleaseStatus("archived")
	assert.Error(t, err)
}

func TestDescribeReleaseStatus(t *testing.T) {
	assert.Equal(t, "correction required", DescribeReleaseStatus(9))
	assert.Equal(t, "rejected", DescribeReleaseStatus(4))
	assert.Equal(t, "live", DescribeReleaseStatus(16))
}
