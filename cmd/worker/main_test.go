package main

import (
	"fmt"
	"testing"

	"github.com/veralend/loandocs/internal/core/domain"
	"github.com/veralend/loandocs/internal/observability/metrics"
)

func TestSyncStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "success", err: nil, want: metrics.SyncStatusSuccess},
		{
			name: "loan already syncing is a skip",
			err:  domain.WrapError(domain.ErrSyncInProgress, "mailbox sync", fmt.Errorf("loan loan-1")),
			want: metrics.SyncStatusSkipped,
		},
		{
			name: "any other error is a failure",
			err:  domain.WrapError(domain.ErrUpstreamUnavailable, "mailbox sync", fmt.Errorf("mail api down")),
			want: metrics.SyncStatusError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := syncStatus(tc.err); got != tc.want {
				t.Fatalf("syncStatus() = %q, want %q", got, tc.want)
			}
		})
	}
}
