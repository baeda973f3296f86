package ttp

// Verb is the action requested on a block attribute.
type Verb string

// Command verbs understood by Tesira devices.
const (
	// VerbGet reads the current value of an attribute.
	VerbGet Verb = "get"

	// VerbSet writes a new value to an attribute.
	VerbSet Verb = "set"

	// VerbIncrement raises a numeric attribute by an amount.
	VerbIncrement Verb = "increment"

	// VerbDecrement lowers a numeric attribute by an amount.
	VerbDecrement Verb = "decrement"

	// VerbToggle flips a boolean attribute.
	VerbToggle Verb = "toggle"

	// VerbSubscribe starts a publish stream for an attribute.
	// The command carries a caller-chosen publish token and an
	// optional minimum update interval in milliseconds.
	VerbSubscribe Verb = "subscribe"

	// VerbUnsubscribe stops a publish stream previously started
	// with the same publish token.
	VerbUnsubscribe Verb = "unsubscribe"
)

// Response line markers. Every well-formed inbound line starts with
// exactly one of these; anything else is command echo or noise.
const (
	// MarkerOK prefixes a successful reply, optionally followed by
	// a "value" or "list" payload.
	MarkerOK = "+OK"

	// MarkerErr prefixes a device-reported error reply.
	MarkerErr = "-ERR"

	// MarkerPublish prefixes a subscription value update.
	MarkerPublish = "!"
)

// Field names used in response payloads.
const (
	FieldValue        = "value"
	FieldList         = "list"
	FieldPublishToken = "publishToken"
)

// LF terminates every command line sent to the device.
const LF = "\n"
