// Package notifications publishes finished-job messages to ntfy.
//
// A Notifier is an orchestrator observer: the composer registers it when
// notifications.ntfy_topic is set, and every terminal transition of a render
// job becomes one POST to the topic. Failures and timeouts are always sent
// with high priority; successes only when notify_success is enabled. Probe
// jobs and cancellations are never announced.
//
// Delivery runs on background goroutines so observers never stall the
// orchestrator; Close waits for in-flight requests.
package notifications
