package gacha

// Remaining returns how many whole seconds the user still has to wait before
// rolling again, or 0 when a roll is allowed. last and now are unix seconds;
// a last of 0 means the user never rolled. A last roll in the future (clock
// skew) waits at most the full cooldown.
func Remaining(last, now int64, cooldownSeconds int) int64 {
	if last == 0 || cooldownSeconds <= 0 {
		return 0
	}

	cooldown := int64(cooldownSeconds)
	elapsed := now - last
	if elapsed >= cooldown {
		return 0
	}
	if elapsed < 0 {
		return cooldown
	}
	return cooldown - elapsed
}
