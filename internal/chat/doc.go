// Package chat is a thin client for the Google Chat API, covering the two
// read paths the assistant needs: finding spaces by display name and
// listing recent messages in a space.
package chat
