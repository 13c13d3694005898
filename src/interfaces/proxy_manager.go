package interfaces

// IProxyManager supplies the outbound proxy and User-Agent for tick downloads.
// The network manager rotates to the next proxy after a failed attempt.
type IProxyManager interface {
	// GetCurrentProxy returns the proxy URL in use, or "" for a direct connection.
	GetCurrentProxy() (string, error)
	RotateProxy()
	HasProxies() bool
	GetUserAgent() string
}
