// Package ratelimit implements a lock-free, cycle-based rate limiter.
//
// Time is divided into fixed refresh cycles. Each cycle grants LimitForPeriod
// permits; unused permits never accumulate beyond one cycle's worth, so an
// idle limiter resumes with at most LimitForPeriod available. The limiter's
// entire mutable state is one immutable snapshot {cycle, permits, wait}
// behind an atomic reference, updated with a compare-and-swap retry loop, so
// concurrent callers observe a total order of permit reservations without a
// lock.
//
// Permits are reserved optimistically: the snapshot update happens before
// the caller is told whether it must wait. AcquirePermission owns the refund
// for its own denials and cancellations; ReservePermission callers that
// decide not to use a reserved permit must refund it with ReleasePermission
// or capacity is permanently lost.
//
// # Usage
//
//	rl, err := ratelimit.New(ratelimit.Config{
//	    LimitForPeriod:     10,
//	    LimitRefreshPeriod: time.Second,
//	    TimeoutDuration:    100 * time.Millisecond,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if !rl.AcquirePermission(ctx) {
//	    return ratelimit.ErrPermissionDenied
//	}
//	return callBackend(ctx)
package ratelimit
