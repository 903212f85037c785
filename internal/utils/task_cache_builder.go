package utils

// BuildTasksListCacheKey keys the cached full task catalog. Versioned so a
// shape change can invalidate old entries by bumping the suffix.
func BuildTasksListCacheKey() string {
	return "tasks:list:v1"
}

// BuildAvailableTasksCacheKey keys the per-user availability listing.
func BuildAvailableTasksCacheKey(userID string) string {
	return "tasks:available:v1:user=" + userID
}
