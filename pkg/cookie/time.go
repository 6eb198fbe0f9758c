package cookie

import "time"

// EpochOffsetMicros is the number of microseconds between the Windows NT
// epoch (1601-01-01 00:00:00 UTC), which the store counts from, and the
// Unix epoch.
const EpochOffsetMicros int64 = 11_644_473_600 * 1_000_000

// ToStoreTime converts t to microseconds since 1601-01-01 UTC.
// The zero time maps to 0.
func ToStoreTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro() + EpochOffsetMicros
}

// FromStoreTime is the inverse of ToStoreTime. The result is in UTC.
func FromStoreTime(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us - EpochOffsetMicros).UTC()
}
