package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout bounds the SOCKS5 handshake performed by CheckConnection.
const checkProxyTimeout = 5 * time.Second

// Client routes upload traffic through a SOCKS5 proxy, normally the SOCKS
// port of a Tor daemon. The analysis service then sees an exit relay
// instead of the address of the person uploading the resume.
type Client struct {
	// proxyAddress is the SOCKS5 proxy address in "host:port" format.
	proxyAddress string

	// dialer is created once and shared by every transport.
	dialer proxy.Dialer

	// timeout is the whole-request timeout of HTTP clients built here.
	timeout time.Duration
}

// NewClient creates a Client for the proxy at proxyAddress ("host:port").
// It does not contact the proxy; call CheckConnection for that.
func NewClient(proxyAddress string, timeout time.Duration) (*Client, error) {
	if !isValidProxyAddress(proxyAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, proxyAddress)
	}

	// Tor's SOCKS port does not use authentication.
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	return &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
		timeout:      timeout,
	}, nil
}

// isValidProxyAddress accepts "host:port" with a non-empty host and a port
// in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// SOCKS5 protocol constants
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5AuthNoAccept  = 0xFF
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03
)

// CheckConnection performs a SOCKS5 handshake with the proxy and asks it to
// CONNECT to target ("host:port", usually the analysis service). Any reply
// to the CONNECT request, success or failure, proves that the proxy speaks
// SOCKS5 and relays requests; no application data is sent.
func (c *Client) CheckConnection(ctx context.Context, target string) ProxyStatus {
	host, portStr, err := net.SplitHostPort(target)
	if err != nil || host == "" || len(host) > 255 {
		return ProxyStatusWrongType
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return ProxyStatusWrongType
	}

	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	if err := conn.SetDeadline(deadline); err != nil {
		return ProxyStatusCannotConnect
	}

	// Greeting: version, one method, "no authentication".
	if _, err := conn.Write([]byte{socks5Version, 0x01, socks5AuthNone}); err != nil {
		return ProxyStatusCannotConnect
	}
	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		return readFailure(err)
	}
	if authResp[0] != socks5Version || authResp[1] == socks5AuthNoAccept || authResp[1] != socks5AuthNone {
		return ProxyStatusWrongType
	}

	// CONNECT by domain name so that the proxy resolves the host.
	req := []byte{socks5Version, socks5CmdConnect, 0x00, socks5AddrTypeDomID, byte(len(host))}
	req = append(req, host...)
	req = append(req, byte(port>>8), byte(port&0xFF))
	if _, err := conn.Write(req); err != nil {
		return ProxyStatusCannotConnect
	}

	// version, reply, reserved, address type
	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		return readFailure(err)
	}
	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}

func readFailure(err error) ProxyStatus {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ProxyStatusTimeout
	}
	return ProxyStatusWrongType
}

// DialContext connects to address through the proxy. When the dialer cannot
// observe ctx, the dial runs in a goroutine and an abandoned connection is
// closed once it completes.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if cd, ok := c.dialer.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}

	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		go func() {
			if result := <-resultCh; result.conn != nil {
				_ = result.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

// Transport returns an HTTP transport that dials through the proxy.
// Certificates are verified normally: the analysis service is a clearnet
// HTTPS endpoint.
func (c *Client) Transport() *http.Transport {
	return &http.Transport{
		DialContext:         c.DialContext,
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 30 * time.Second,
		// Compressed sizes leak information about the content.
		DisableCompression: true,
	}
}

// NewHTTPClient returns an HTTP client whose requests go through the proxy.
func (c *Client) NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: c.Transport(),
		Timeout:   c.timeout,
	}
}

// ProxyAddress returns the configured proxy address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}
