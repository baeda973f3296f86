package ttp

// TokenType classifies one decoded inbound line.
type TokenType int

const (
	// TokenAck is a bare +OK reply with no payload.
	TokenAck TokenType = iota

	// TokenValue is an +OK reply carrying a single "value" payload.
	TokenValue

	// TokenList is an +OK reply carrying a "list" payload.
	TokenList

	// TokenError is a -ERR reply reported by the device.
	TokenError

	// TokenPublish is a subscription value update.
	TokenPublish
)

func (t TokenType) String() string {
	switch t {
	case TokenAck:
		return "ack"
	case TokenValue:
		return "value"
	case TokenList:
		return "list"
	case TokenError:
		return "error"
	case TokenPublish:
		return "publish"
	default:
		return "unknown"
	}
}

// Token is one decoded unit of inbound protocol traffic: either the
// reply to a command or a subscription publish.
type Token struct {
	Type TokenType

	// Value holds the payload of TokenValue and TokenPublish tokens.
	Value Value

	// List holds the payload of TokenList tokens.
	List []Value

	// Tag is the publish token of TokenPublish tokens.
	Tag string

	// Err describes TokenError tokens.
	Err *DeviceError
}

// IsReply reports whether the token satisfies an outstanding command,
// as opposed to being an asynchronous publish.
func (t Token) IsReply() bool {
	return t.Type != TokenPublish
}
