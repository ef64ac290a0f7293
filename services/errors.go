package services

import "errors"

// Expected outcomes are sentinel errors so callers can branch on them and map
// each to a distinct HTTP status. Anything else bubbling out of a service is
// an infrastructure failure: logged and surfaced as a generic 500.
var (
	ErrInvalidDelta        = errors.New("point delta must be non-zero")
	ErrInsufficientBalance = errors.New("insufficient point balance")
	ErrAlreadyClaimed      = errors.New("already claimed today")
	ErrAlreadyClaimedToday = errors.New("action already claimed today")
	ErrSpinNotUnlocked     = errors.New("bonus spin is not unlocked")
	ErrAlreadyLinked       = errors.New("user already has a referrer")
	ErrInvalidCode         = errors.New("referral code not recognized")
	ErrUnknownReward       = errors.New("unknown reward id")
	ErrUnsupportedSource   = errors.New("source is not a daily action")
	ErrDeliveryFailed      = errors.New("reward fulfillment dispatch failed")
)
