package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// DecisionKey is the callback registry key carried by the inline decision
// controls attached to a forwarded receipt.
const DecisionKey = "payment"

// Decision verbs.
const (
	VerbConfirm = "confirm"
	VerbDecline = "decline"
)

// EncodeDecision builds the wire token "<verb>:<userId>:<orderTag>".
func EncodeDecision(verb string, userID int64, orderTag string) string {
	return fmt.Sprintf("%s:%d:%s", verb, userID, orderTag)
}

// ParseDecision parses a decision token positionally. ok is false for tokens
// with fewer than three colon-separated fields or a non-numeric user id;
// such payloads are acknowledged and ignored by the caller.
func ParseDecision(data string) (verb string, userID int64, orderTag string, ok bool) {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) < 3 {
		return "", 0, "", false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, "", false
	}
	return parts[0], id, parts[2], true
}
