package pipeline

import "time"

const (
	defaultDedupWindowDays = 30

	// finishRunTimeout bounds the final run-row update, which must land even
	// when the run context is already gone.
	finishRunTimeout = 10 * time.Second

	originRSS    = "rss"
	originSearch = "search"

	dropReasonDuplicateBatch = "duplicate_batch"
	dropReasonAlreadyStored  = "already_stored"
	dropReasonNotRelevant    = "not_relevant"

	logKeyRun   = "run_id"
	logKeyURL   = "url"
	logKeyIntel = "intel_id"
)
