// Package events delivers one-time pre-key pool events (running low, ran
// out) to logs and to a redis pub/sub channel.
package events
