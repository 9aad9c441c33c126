// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.
package sshkey

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/keymaster-blacklist/internal/testutil"
	"golang.org/x/crypto/ssh"
)

func TestParse_NormalLine(t *testing.T) {
	line := "ssh-rsa AAAAB3NzaC1yc2EAAAADAQABAAABAQC3 test-key@example.com"
	alg, key, comment, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if alg != "ssh-rsa" {
		t.Fatalf("unexpected alg: %s", alg)
	}
	if key == "" {
		t.Fatalf("empty key data")
	}
	if comment != "test-key@example.com" {
		t.Fatalf("unexpected comment: %s", comment)
	}
}

func TestParse_WithOptions(t *testing.T) {
	line := "no-agent-forwarding,command=\"echo hi\" ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIBk comment"
	alg, key, comment, err := Parse(line)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if alg != "ssh-ed25519" {
		t.Fatalf("unexpected alg: %s", alg)
	}
	if comment != "comment" {
		t.Fatalf("unexpected comment: %s", comment)
	}
	if key == "" {
		t.Fatalf("empty key data")
	}
}

func TestParse_Errors(t *testing.T) {
	if _, _, _, err := Parse(""); err == nil {
		t.Fatalf("expected error for empty line")
	}
	if _, _, _, err := Parse("just-some-text"); err == nil {
		t.Fatalf("expected error for no key type")
	}
	if _, _, _, err := Parse("ssh-rsa"); err == nil {
		t.Fatalf("expected error for missing key data")
	}
}

func TestParsePublicKey_AuthorizedKey(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	line := `from="10.0.0.1" ` + testutil.AuthorizedKey(t, pub, "alice@laptop")

	k, comment, err := ParsePublicKey([]byte(line))
	if err != nil {
		t.Fatalf("ParsePublicKey failed: %v", err)
	}
	got, ok := k.(ed25519.PublicKey)
	if !ok {
		t.Fatalf("expected ed25519.PublicKey, got %T", k)
	}
	if !got.Equal(pub) {
		t.Fatalf("parsed key does not match original")
	}
	if comment != "alice@laptop" {
		t.Fatalf("unexpected comment: %q", comment)
	}
}

func TestParsePublicKey_PEM(t *testing.T) {
	rk, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	der, err := x509.MarshalPKIXPublicKey(&rk.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey failed: %v", err)
	}
	cases := []struct {
		name  string
		block *pem.Block
	}{
		{"pkix", &pem.Block{Type: "PUBLIC KEY", Bytes: der}},
		{"pkcs1", &pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&rk.PublicKey)}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			k, _, err := ParsePublicKey(pem.EncodeToMemory(c.block))
			if err != nil {
				t.Fatalf("ParsePublicKey failed: %v", err)
			}
			got, ok := k.(*rsa.PublicKey)
			if !ok || !got.Equal(&rk.PublicKey) {
				t.Fatalf("unexpected key: %T", k)
			}
		})
	}
}

func TestParsePublicKey_Certificate(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "blocked.example"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("CreateCertificate failed: %v", err)
	}

	k, comment, err := ParsePublicKey(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))
	if err != nil {
		t.Fatalf("ParsePublicKey failed: %v", err)
	}
	got, ok := k.(*ecdsa.PublicKey)
	if !ok || !got.Equal(&priv.PublicKey) {
		t.Fatalf("expected certificate subject key, got %T", k)
	}
	if comment != "blocked.example" {
		t.Fatalf("unexpected comment: %q", comment)
	}
}

func TestParsePublicKey_SSHCertificate(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	sp, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("NewPublicKey failed: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("NewSignerFromKey failed: %v", err)
	}
	cert := &ssh.Certificate{Key: sp, CertType: ssh.UserCert, ValidBefore: ssh.CertTimeInfinity}
	if err := cert.SignCert(rand.Reader, signer); err != nil {
		t.Fatalf("SignCert failed: %v", err)
	}

	k, _, err := ParsePublicKey(ssh.MarshalAuthorizedKey(cert))
	if err != nil {
		t.Fatalf("ParsePublicKey failed: %v", err)
	}
	got, ok := k.(ed25519.PublicKey)
	if !ok || !got.Equal(pub) {
		t.Fatalf("expected certified key, got %T", k)
	}
}

func TestParsePublicKey_Errors(t *testing.T) {
	if _, _, err := ParsePublicKey(nil); !errors.Is(err, ErrNoKey) {
		t.Fatalf("expected ErrNoKey, got %v", err)
	}
	if _, _, err := ParsePublicKey([]byte("not a key")); err == nil {
		t.Fatalf("expected error for garbage input")
	}
	if _, _, err := ParsePublicKey([]byte("-----BEGIN PUBLIC KEY-----\nbroken")); err == nil {
		t.Fatalf("expected error for truncated PEM")
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1, 2, 3}})
	if _, _, err := ParsePublicKey(block); err == nil {
		t.Fatalf("expected error for unsupported PEM type")
	}
}

func TestParseAll_AuthorizedKeys(t *testing.T) {
	a, _, _ := ed25519.GenerateKey(rand.Reader)
	b, _, _ := ed25519.GenerateKey(rand.Reader)
	input := strings.Join([]string{
		"# managed by hand",
		testutil.AuthorizedKey(t, a, "a"),
		"",
		"ssh-ed25519 !!!notbase64",
		testutil.AuthorizedKey(t, b, "b"),
	}, "\n")

	keys, errs := ParseAll(strings.NewReader(input))
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if keys[0].Line != 2 || keys[0].Comment != "a" || keys[1].Line != 5 {
		t.Fatalf("unexpected parse positions: %+v", keys)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
	var le *LineError
	if !errors.As(errs[0], &le) || le.Line != 4 {
		t.Fatalf("expected LineError on line 4, got %v", errs[0])
	}
}

func TestParseAll_PEMStream(t *testing.T) {
	ek, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&ek.PublicKey)
	if err != nil {
		t.Fatalf("MarshalPKIXPublicKey failed: %v", err)
	}
	var sb strings.Builder
	sb.Write(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	sb.Write(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte{0x30, 0x00}}))
	sb.Write(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	keys, errs := ParseAll(strings.NewReader(sb.String()))
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if keys[0].Line != 1 || keys[1].Line <= keys[0].Line {
		t.Fatalf("unexpected block positions: %+v", keys)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error for the broken block, got %v", errs)
	}
}
