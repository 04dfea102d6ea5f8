// Package tor routes uploads through the Tor network.
//
// A Client wraps a SOCKS5 dialer (golang.org/x/net/proxy) and builds HTTP
// clients for the upload client. The proxy is either a Tor daemon the user
// already runs (--proxy 127.0.0.1:9050) or an embedded daemon started with
// tornago (--tor), which bootstraps in one to three minutes.
//
// Connect picks between the two from the configuration and returns a stop
// function that shuts down an embedded daemon.
package tor
