// Package ttp implements the wire level of the Tesira Text Protocol:
// the value grammar, command serialization and response line parsing.
//
// The protocol is line oriented. A client writes one command per line:
//
//	Level3 set level 2 0
//
// and the device answers with one line per reply or subscription update:
//
//	+OK
//	+OK "value":0.000000
//	+OK "list":["Level1" "Level2"]
//	-ERR address not found: {"deviceId":0 "classCode":0 "instanceNum":0}
//	! "publishToken":"MyLevel" "value":6.000000
//
// This package is purely computational: it never touches a connection.
// Session management lives in the parent package.
package ttp
