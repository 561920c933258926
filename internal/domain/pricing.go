package domain

// CurrentPrice computes the Dutch auction price for ev at unix time now.
//
// The price holds at StartPrice until the auction opens, decays linearly
// to EndPrice over the auction window, and holds at EndPrice afterwards.
// All arithmetic is exact integer math with truncating division, so every
// caller that evaluates the formula for the same inputs gets the same
// result; a bid is accepted only if it equals this value to the unit.
func CurrentPrice(ev *Event, now int64) int64 {
	if now <= ev.AuctionStartTime {
		return ev.StartPrice
	}
	if now >= ev.AuctionEndTime {
		return ev.EndPrice
	}
	elapsed := now - ev.AuctionStartTime
	window := ev.AuctionEndTime - ev.AuctionStartTime
	spread := ev.StartPrice - ev.EndPrice
	// floor(spread*elapsed/window) computed as quotient and remainder
	// parts: spread*elapsed can overflow int64, while here no
	// intermediate exceeds max(spread, window*window).
	drop := spread/window*elapsed + spread%window*elapsed/window
	return ev.StartPrice - drop
}
