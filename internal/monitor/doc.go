// Package monitor tracks crawl throughput. It keeps thread-safe
// counters and a bounded window of recent fetch timestamps so the
// crawler can report URLs per hour, average response times, and an
// estimated completion time while a long crawl is running.
package monitor
