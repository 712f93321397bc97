package model

// knownCounters names the terminal key segments Neo4j reports as
// cumulative values. Everything else is treated as a gauge.
var knownCounters = map[string]bool{}

func init() {
	for _, name := range []string{
		// Bolt
		"connections_opened", "connections_closed",
		"messages_received", "messages_started", "messages_done", "messages_failed",
		"accumulated_queue_time", "accumulated_processing_time",

		// Checkpointing
		"events", "total_time",

		// Cypher
		"replan_events", "replan_wait_time",

		// DB operation counts
		"create", "start", "stop", "drop", "failed", "recovered",

		// Page cache
		"eviction_exceptions", "flushes", "merges", "unpins", "pins", "evictions",
		"cooperative", "page_faults", "page_fault_failures",
		"page_cancelled_faults", "hits", "bytes_read", "bytes_written",
		"pages_copies",

		// Query execution
		"success", "failure",

		// DB transaction log
		"rotation_events", "rotation_total_time", "appended_bytes",

		// DB transactions
		"started", "peak_concurrent", "committed", "committed_read",
		"committed_write", "rollbacks", "rollbacks_read", "rollbacks_write",
		"terminated", "terminated_read", "terminated_write", "committed_tx_id",
		"last_closed_tx_id",

		// Clustering
		"pull_resusts_received", "tx_retries", "misses",
		"message_processing_timer", "replication_attempt", "replication_fail",
		"replication_maybe", "replication_success",

		// Secondary databases
		"pull_updates", "pull_updates_highest_tx_id_requested",
		"pull_updates_highest_tx_id_received",

		// JVM
		"pause_time",

		// the obvious
		"count",
	} {
		knownCounters[name] = true
	}
}
