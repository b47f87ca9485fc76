package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubSweeper struct {
	n   int
	err error
}

func (s stubSweeper) CheckExpiredWithdrawals() (int, error) { return s.n, s.err }

type countingCache struct {
	calls int
}

func (c *countingCache) Invalidate(context.Context) { c.calls++ }

func TestExpireWithdrawalsInvalidatesDashboard(t *testing.T) {
	cases := []struct {
		name  string
		sweep stubSweeper
		want  int
	}{
		{"nothing expired", stubSweeper{}, 0},
		{"expired", stubSweeper{n: 2}, 1},
		{"partial failure still invalidates", stubSweeper{n: 1, err: errors.New("ledger contention")}, 1},
		{"total failure", stubSweeper{err: errors.New("db down")}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cache := &countingCache{}
			expireWithdrawals(t.Context(), tc.sweep, cache)
			assert.Equal(t, tc.want, cache.calls)
		})
	}
}
