// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshkey reads public keys from the formats operators keep them in:
// OpenSSH authorized_keys lines and PEM files (PKIX, PKCS#1 and X.509
// certificates). Parsed keys are returned as standard library key types so
// they can be fingerprinted directly.
package sshkey
