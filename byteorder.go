package pcapng

import "math/big"

// splitTicks decomposes a 64-bit tick count in unitsPerSecond ticks
// into seconds and nanoseconds (§3, §4.4). unitsPerSecond can be as
// large as 2^63 (a clamped base-2 tsresol), so the fractional part is
// scaled through big.Int to avoid overflowing a uint64 multiply.
func splitTicks(ticks, unitsPerSecond uint64) (seconds int64, nanos int64) {
	if unitsPerSecond == 0 {
		unitsPerSecond = 1_000_000
	}
	sec := ticks / unitsPerSecond
	frac := ticks % unitsPerSecond

	n := new(big.Int).SetUint64(frac)
	n.Mul(n, big.NewInt(1_000_000_000))
	n.Div(n, new(big.Int).SetUint64(unitsPerSecond))

	return int64(sec), n.Int64()
}

// joinTicks is the writer-side inverse of splitTicks: seconds and
// nanoseconds since the Unix epoch, scaled to unitsPerSecond ticks and
// split into the high/low 32-bit halves the wire format uses.
func joinTicks(seconds, nanos int64, unitsPerSecond uint64) (high, low uint32) {
	if unitsPerSecond == 0 {
		unitsPerSecond = 1_000_000
	}

	whole := new(big.Int).SetInt64(seconds)
	whole.Mul(whole, new(big.Int).SetUint64(unitsPerSecond))

	frac := new(big.Int).SetInt64(nanos)
	frac.Mul(frac, new(big.Int).SetUint64(unitsPerSecond))
	frac.Div(frac, big.NewInt(1_000_000_000))

	whole.Add(whole, frac)
	ticks := whole.Uint64()
	return uint32(ticks >> 32), uint32(ticks & 0xffffffff)
}
