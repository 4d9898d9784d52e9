package redis

import "strings"

// Every key lives under moda:<kind>:... so one Redis can serve all binaries.
const (
	keyNamespace      = "moda"
	idempotencyPrefix = "idempotency"
	lockPrefix        = "lock"
	callbackPrefix    = "callback"
)

// IdempotencyKey namespaces a client-supplied Idempotency-Key by scope
// (caller, method and path).
func (c *Client) IdempotencyKey(scope, id string) string {
	return buildKey(idempotencyPrefix, scope, id)
}

// LockKey names a distributed lock such as the cron-worker lease.
func (c *Client) LockKey(name string) string {
	return buildKey(lockPrefix, name)
}

// GatewayCallbackKey identifies one delivery of a payment gateway callback.
func (c *Client) GatewayCallbackKey(gateway, orderRef, transactionNo string) string {
	return buildKey(callbackPrefix, strings.ToLower(gateway), orderRef, transactionNo)
}

func buildKey(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
