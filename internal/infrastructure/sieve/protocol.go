// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package sieve

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

// response is the outcome of one ManageSieve command (RFC 5804).
type response struct {
	lines   []string
	literal string
}

// responseError is a NO or BYE reply.
type responseError struct {
	Status  string
	Code    string
	Message string
}

func (e *responseError) Error() string {
	msg := e.Status
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += " " + e.Message
	}
	return msg
}

// conn is a ManageSieve client connection.
type conn struct {
	raw          net.Conn
	text         *textproto.Conn
	timeout      time.Duration
	capabilities map[string]string
}

// dial connects and reads the server greeting.
func dial(ctx context.Context, addr string, timeout time.Duration) (*conn, error) {
	dialer := net.Dialer{Timeout: timeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c := &conn{raw: raw, text: textproto.NewConn(raw), timeout: timeout}
	if err := c.readCapabilities(); err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("reading greeting: %w", err)
	}
	return c, nil
}

func (c *conn) deadline() {
	if c.timeout > 0 {
		_ = c.raw.SetDeadline(time.Now().Add(c.timeout))
	}
}

// readCapabilities parses a capability listing terminated by OK.
func (c *conn) readCapabilities() error {
	resp, err := c.readResponse()
	if err != nil {
		return err
	}
	caps := make(map[string]string, len(resp.lines))
	for _, line := range resp.lines {
		fields := quotedFields(line)
		if len(fields) == 0 {
			continue
		}
		value := ""
		if len(fields) > 1 {
			value = fields[1]
		}
		caps[strings.ToUpper(fields[0])] = value
	}
	c.capabilities = caps
	return nil
}

// hasSASL reports whether the server offers the SASL mechanism.
func (c *conn) hasSASL(mechanism string) bool {
	for _, m := range strings.Fields(c.capabilities["SASL"]) {
		if strings.EqualFold(m, mechanism) {
			return true
		}
	}
	return false
}

// startTLS upgrades the connection and re-reads the capabilities.
func (c *conn) startTLS(cfg *tls.Config) error {
	if _, ok := c.capabilities["STARTTLS"]; !ok {
		return fmt.Errorf("server does not offer STARTTLS")
	}
	if _, err := c.command("STARTTLS"); err != nil {
		return err
	}
	tlsConn := tls.Client(c.raw, cfg)
	c.deadline()
	if err := tlsConn.Handshake(); err != nil {
		return fmt.Errorf("TLS handshake: %w", err)
	}
	c.raw = tlsConn
	c.text = textproto.NewConn(tlsConn)
	return c.readCapabilities()
}

// authenticatePlain logs in with SASL PLAIN.
func (c *conn) authenticatePlain(username, password string) error {
	if !c.hasSASL("PLAIN") {
		return fmt.Errorf("server does not offer SASL PLAIN")
	}
	token := base64.StdEncoding.EncodeToString([]byte("\x00" + username + "\x00" + password))
	_, err := c.command("AUTHENTICATE " + quote("PLAIN") + " " + quote(token))
	return err
}

// getScript returns the script body. A missing script yields ok=false.
func (c *conn) getScript(name string) (script string, ok bool, err error) {
	resp, err := c.command("GETSCRIPT " + quote(name))
	if err != nil {
		var re *responseError
		if errors.As(err, &re) && strings.EqualFold(re.Code, "NONEXISTENT") {
			return "", false, nil
		}
		return "", false, err
	}
	return resp.literal, true, nil
}

// putScript uploads a script as a non-synchronizing literal with CRLF line endings.
func (c *conn) putScript(name, script string) error {
	script = strings.ReplaceAll(strings.ReplaceAll(script, "\r\n", "\n"), "\n", "\r\n")
	_, err := c.command(fmt.Sprintf("PUTSCRIPT %s {%d+}\r\n%s", quote(name), len(script), script))
	return err
}

func (c *conn) setActive(name string) error {
	_, err := c.command("SETACTIVE " + quote(name))
	return err
}

// logout ends the session and closes the connection.
func (c *conn) logout() error {
	_, cmdErr := c.command("LOGOUT")
	closeErr := c.raw.Close()
	if cmdErr != nil {
		return cmdErr
	}
	return closeErr
}

func (c *conn) close() error {
	return c.raw.Close()
}

// command sends one command line and reads its response.
func (c *conn) command(line string) (response, error) {
	c.deadline()
	if err := c.text.PrintfLine("%s", line); err != nil {
		return response{}, err
	}
	return c.readResponse()
}

// readResponse reads data lines and literals until OK, NO or BYE.
func (c *conn) readResponse() (response, error) {
	var resp response
	for {
		line, err := c.text.ReadLine()
		if err != nil {
			return resp, err
		}
		if line == "" {
			continue
		}

		status, rest, _ := strings.Cut(line, " ")
		switch strings.ToUpper(status) {
		case "OK":
			return resp, nil
		case "NO", "BYE":
			code, message := parseStatusText(rest)
			return resp, &responseError{Status: strings.ToUpper(status), Code: code, Message: message}
		}

		if n, ok := literalLength(line); ok {
			buf := make([]byte, n)
			if _, err := io.ReadFull(c.text.R, buf); err != nil {
				return resp, err
			}
			resp.literal = string(buf)
			continue
		}
		resp.lines = append(resp.lines, line)
	}
}

// literalLength recognizes "{n}" and "{n+}" at the end of a line.
func literalLength(line string) (int, bool) {
	if !strings.HasSuffix(line, "}") {
		return 0, false
	}
	open := strings.LastIndex(line, "{")
	if open < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(line[open+1:len(line)-1], "+"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// parseStatusText splits `(CODE) "message"` into its parts.
func parseStatusText(rest string) (code, message string) {
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "(") {
		if end := strings.Index(rest, ")"); end > 0 {
			if codeFields := strings.Fields(rest[1:end]); len(codeFields) > 0 {
				code = codeFields[0]
			}
			rest = strings.TrimSpace(rest[end+1:])
		}
	}
	if fields := quotedFields(rest); len(fields) > 0 {
		message = fields[0]
	}
	return code, message
}

// quotedFields splits a line into quoted strings and bare atoms.
func quotedFields(line string) []string {
	var fields []string
	r := bufio.NewReader(strings.NewReader(line))
	for {
		ch, _, err := r.ReadRune()
		if err != nil {
			return fields
		}
		switch {
		case ch == ' ':
		case ch == '"':
			var b strings.Builder
			for {
				ch, _, err = r.ReadRune()
				if err != nil || ch == '"' {
					break
				}
				if ch == '\\' {
					if ch, _, err = r.ReadRune(); err != nil {
						break
					}
				}
				b.WriteRune(ch)
			}
			fields = append(fields, b.String())
		default:
			var b strings.Builder
			b.WriteRune(ch)
			for {
				ch, _, err = r.ReadRune()
				if err != nil {
					break
				}
				if ch == ' ' {
					break
				}
				b.WriteRune(ch)
			}
			fields = append(fields, b.String())
		}
	}
}

// quote renders s as a ManageSieve quoted string.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
