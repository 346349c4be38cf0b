// Package strava fetches activities, segments, and segment efforts from the
// Strava v3 API. Every request passes through the shared rate limiter before
// it is sent, and the original JSON payload of each record is preserved
// alongside the decoded fields so the store keeps a verbatim copy.
package strava
