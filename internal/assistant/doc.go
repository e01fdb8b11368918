// Package assistant defines the Google Chat assistant: the two Chat tools
// and the orchestrator/worker agent pair that uses them. The orchestrator
// finds spaces and routes content questions to the analysis agent, which
// reads messages through the same credential lifecycle.
package assistant
