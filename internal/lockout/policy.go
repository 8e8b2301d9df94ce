// Package lockout implements the progressive account-lockout policy:
// consecutive failed logins within a sliding window escalate to a temporary
// lock, and repeated temporary locks within a tracking period escalate to a
// permanent lock that only an administrator can clear.
//
// All functions are pure over the user's lockout fields and an injected
// current time. They mutate the passed *models.User but never persist it;
// persistence is the caller's responsibility.
package lockout

import (
	"time"

	"gatehouse/internal/config"
	"gatehouse/internal/models"
)

// Outcome describes the effect of registering a failed login attempt.
type Outcome struct {
	Locked       bool          // a new lock was applied by this attempt
	Permanent    bool          // the new lock is permanent
	LockDuration time.Duration // duration of the temporary lock; zero when permanent
}

// IsLockedOut reports whether the user is currently barred from logging in.
// A locked_until in the past counts as unlocked (lazy expiry, no sweeper).
func IsLockedOut(u *models.User, now time.Time) bool {
	if u.IsPermanentlyLocked {
		return true
	}
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// RegisterFailedAttempt applies one failed login to the user's lockout state.
//
// A nil or stale last-failure timestamp restarts the counter at 1: the
// attempt window defines "consecutive", so a lapsed window discards any
// prior count rather than resuming it. When the counter reaches
// MaxLoginAttempts the counter resets to zero and a temporary lock is
// applied; reaching MaxLockoutsInPeriod temporary locks within LockoutPeriod
// escalates to a permanent lock.
func RegisterFailedAttempt(u *models.User, now time.Time, cfg config.LockoutConfig) Outcome {
	if u.LastFailedLoginAt == nil || now.Sub(*u.LastFailedLoginAt) > cfg.AttemptWindow {
		u.FailedLoginAttempts = 1
		u.LastFailedLoginAt = timePtr(now)
		return Outcome{}
	}

	u.FailedLoginAttempts++
	u.LastFailedLoginAt = timePtr(now)

	if u.FailedLoginAttempts < cfg.MaxLoginAttempts {
		return Outcome{}
	}

	// Threshold reached: the counter resets and a lock is applied.
	u.FailedLoginAttempts = 0
	u.LockedUntil = timePtr(now.Add(cfg.LockoutDuration))

	if u.LastLockoutAt == nil || now.Sub(*u.LastLockoutAt) > cfg.LockoutPeriod {
		u.LockoutCount = 1
	} else {
		u.LockoutCount++
	}

	out := Outcome{Locked: true, LockDuration: cfg.LockoutDuration}

	if u.LockoutCount >= cfg.MaxLockoutsInPeriod {
		u.IsPermanentlyLocked = true
		// Sentinel far-future lock so lazy expiry can never report a
		// permanently locked account as unlocked.
		u.LockedUntil = timePtr(now.AddDate(10, 0, 0))
		out.Permanent = true
		out.LockDuration = 0
	}

	u.LastLockoutAt = timePtr(now)
	return out
}

// ResetOnSuccess clears the failed-attempt counter after a successful login.
// It must only be called when the account is not locked.
func ResetOnSuccess(u *models.User) {
	u.FailedLoginAttempts = 0
	u.LastFailedLoginAt = nil
}

// Unlock removes both temporary and permanent locks. When resetLockoutCount
// is true the lockout-tracking counters are cleared as well, otherwise a
// subsequent temporary lock within the period still escalates.
func Unlock(u *models.User, resetLockoutCount bool) {
	u.LockedUntil = nil
	u.IsPermanentlyLocked = false
	u.FailedLoginAttempts = 0

	if resetLockoutCount {
		u.LockoutCount = 0
		u.LastLockoutAt = nil
	}
}

// IsPermanentlyLocked classifies a user as permanently locked for display
// purposes: either the explicit flag is set, or the remaining lock span is at
// least threshold (which catches the far-future sentinel even if the flag
// were lost).
func IsPermanentlyLocked(u *models.User, now time.Time, threshold time.Duration) bool {
	if u.IsPermanentlyLocked {
		return true
	}
	return u.LockedUntil != nil && u.LockedUntil.Sub(now) >= threshold
}

func timePtr(t time.Time) *time.Time {
	return &t
}
