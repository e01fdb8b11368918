// Package console implements the interactive command line front end. A
// readline loop feeds user queries to the agent runtime and streams the
// answers back; when a turn suspends on a credential request the driver
// walks the user through the browser consent handshake and resumes the
// turn with the pasted callback URL.
package console
