package locker

// isWriteLock reports whether a holder list represents an exclusively held
// resource: exactly one record, and that record is a writer.
func isWriteLock(lris []LockRequesterInfo) bool {
	return len(lris) == 1 && lris[0].Writer
}
