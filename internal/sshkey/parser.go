// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"bufio"
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ErrNoKey is returned when input holds nothing that looks like a public key.
var ErrNoKey = errors.New("no public key found")

// Parse splits a raw public key string (like one from an authorized_keys file)
// into its three core components: algorithm, key data, and comment.
// It correctly handles leading options in the line (e.g., from="...",command="...").
func Parse(rawKey string) (algorithm, keyData, comment string, err error) {
	fields := strings.Fields(rawKey)
	if len(fields) == 0 {
		err = fmt.Errorf("empty line")
		return
	}

	keyStartIndex := -1
	for i, field := range fields {
		if strings.HasPrefix(field, "ssh-") || strings.HasPrefix(field, "ecdsa-") || strings.HasPrefix(field, "sk-") {
			keyStartIndex = i
			break
		}
	}

	if keyStartIndex == -1 {
		err = fmt.Errorf("no valid SSH key type found in line")
		return
	}

	if len(fields) < keyStartIndex+2 {
		err = fmt.Errorf("invalid public key format: missing key data after algorithm")
		return
	}

	algorithm = fields[keyStartIndex]
	keyData = fields[keyStartIndex+1]
	if len(fields) > keyStartIndex+2 {
		comment = strings.Join(fields[keyStartIndex+2:], " ")
	}

	return
}

// ParsePublicKey decodes a single public key. PEM input may be a PUBLIC KEY,
// RSA PUBLIC KEY or CERTIFICATE block; anything else is read as an
// authorized_keys line. The comment is the OpenSSH comment or, for
// certificates, the subject common name.
func ParsePublicKey(data []byte) (crypto.PublicKey, string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, "", ErrNoKey
	}
	if bytes.HasPrefix(data, []byte("-----BEGIN")) {
		block, _ := pem.Decode(data)
		if block == nil {
			return nil, "", fmt.Errorf("invalid PEM data")
		}
		return parsePEMBlock(block)
	}

	pub, comment, _, _, err := ssh.ParseAuthorizedKey(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse authorized key: %w", err)
	}
	return fromSSH(pub), comment, nil
}

func parsePEMBlock(block *pem.Block) (crypto.PublicKey, string, error) {
	switch block.Type {
	case "PUBLIC KEY":
		k, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse PKIX public key: %w", err)
		}
		return k, "", nil
	case "RSA PUBLIC KEY":
		k, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse PKCS#1 public key: %w", err)
		}
		return k, "", nil
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, "", fmt.Errorf("failed to parse certificate: %w", err)
		}
		return cert.PublicKey, cert.Subject.CommonName, nil
	default:
		return nil, "", fmt.Errorf("unsupported PEM block type %q", block.Type)
	}
}

// fromSSH converts an ssh.PublicKey to its standard library form when the key
// type allows it. Certificates yield the certified key.
func fromSSH(pub ssh.PublicKey) crypto.PublicKey {
	if cert, ok := pub.(*ssh.Certificate); ok {
		pub = cert.Key
	}
	if cpk, ok := pub.(ssh.CryptoPublicKey); ok {
		return cpk.CryptoPublicKey()
	}
	return pub
}

// Parsed is one key read by ParseAll. Line is 1-based; for PEM input it is
// the line the block starts on.
type Parsed struct {
	Line    int
	Key     crypto.PublicKey
	Comment string
}

// LineError reports a key that could not be parsed.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// ParseAll reads every public key from r. Input containing PEM blocks is read
// block by block; otherwise it is read as authorized_keys lines, skipping
// blank lines and '#' comments. Unparseable entries are reported as
// *LineError values and do not stop the scan.
func ParseAll(r io.Reader) ([]Parsed, []error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, []error{err}
	}
	if bytes.Contains(data, []byte("-----BEGIN")) {
		return parseAllPEM(data)
	}

	var (
		out  []Parsed
		errs []error
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, comment, err := ParsePublicKey([]byte(line))
		if err != nil {
			errs = append(errs, &LineError{Line: lineNo, Err: err})
			continue
		}
		out = append(out, Parsed{Line: lineNo, Key: k, Comment: comment})
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, err)
	}
	return out, errs
}

func parseAllPEM(data []byte) ([]Parsed, []error) {
	var (
		out  []Parsed
		errs []error
	)
	rest := data
	for {
		start := bytes.Index(rest, []byte("-----BEGIN"))
		if start < 0 {
			break
		}
		lineNo := bytes.Count(data[:len(data)-len(rest)+start], []byte("\n")) + 1
		block, next := pem.Decode(rest[start:])
		if block == nil {
			errs = append(errs, &LineError{Line: lineNo, Err: fmt.Errorf("invalid PEM data")})
			break
		}
		rest = next
		k, comment, err := parsePEMBlock(block)
		if err != nil {
			errs = append(errs, &LineError{Line: lineNo, Err: err})
			continue
		}
		out = append(out, Parsed{Line: lineNo, Key: k, Comment: comment})
	}
	if len(out) == 0 && len(errs) == 0 {
		errs = append(errs, ErrNoKey)
	}
	return out, errs
}
