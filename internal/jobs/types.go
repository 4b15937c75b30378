package jobs

// Task type names consumed by the cache worker. The scheduler enqueues them
// periodically; the admin API enqueues them on demand.
const (
	TaskWarmAll      = "cache:warm_all"
	TaskWarmCritical = "cache:warm_critical"
	TaskRefresh      = "cache:refresh"
)

// QueueWarming carries warm/refresh tasks at a higher priority than default.
const QueueWarming = "warming"
