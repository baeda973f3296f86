// Package tesira is a client for the Tesira Text Protocol, the
// line-oriented control protocol spoken by Biamp Tesira audio DSP
// devices.
//
// The package splits into two layers. The wire layer, in the ttp
// subpackage, knows the protocol grammar: values, commands, and the
// tokens parsed from inbound lines. This package adds everything
// stateful on top: the schema catalog validating commands before they
// are sent, the session correlating replies and fanning out
// subscription publishes, and a pooled client for concurrent command
// traffic.
//
// A minimal round-trip:
//
//	transport, err := tesira.DialSSH(tesira.SSHConfig{
//		Addr:     "192.168.1.50:22",
//		User:     "default",
//		Password: "forgetme",
//	})
//	if err != nil {
//		return err
//	}
//	session, err := tesira.NewSession(transport, tesira.Config{})
//	if err != nil {
//		return err
//	}
//	defer session.Close()
//
//	token, err := session.Send(ttp.NewGet("Level1", "level", 1))
//
// The protocol has no request identifiers, so each session allows one
// command in flight at a time. Client wraps a session pool to lift
// that restriction for command-only workloads.
package tesira
