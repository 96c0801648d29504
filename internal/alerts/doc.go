// Package alerts detects threshold breaches, keeps the alert log and
// delivers webhook notifications for newly raised alerts.
//
// Detect checks temperature, vibration and current independently and returns
// at most one alert per channel. Log keeps alerts newest first, capped at a
// fixed length, and supports dismissal by id. Notifier posts alerts to Slack,
// Teams or generic HTTP webhooks.
package alerts
