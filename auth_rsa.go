// Go MySQL Driver - A MySQL-Driver for Go's database/sql package
//
// Copyright 2013 The Go-MySQL-Driver Authors. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at http://mozilla.org/MPL/2.0/.

// auth_rsa.go implements caching_sha2_password's full-auth path over a
// connection without TLS (SPEC_FULL.md §4.4 and the Open Question
// resolution recorded in DESIGN.md): request the server's RSA public
// key, encrypt XOR(password || 0x00, scramble-derived keystream) with
// RSA-OAEP, and send the ciphertext. Grounded on the equivalent flow in
// go-sql-driver/mysql's auth.go, reconstructed here because the
// retrieved teacher file subset does not include it; expressed with
// this module's own channel/Config types.
package mysql

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
)

// rsaPublicKeyRequest is the single byte COM_STMT_SEND_LONG_DATA-like
// request that asks the server to send its RSA public key
// (caching_sha2_password full-auth, spec §4.4).
const rsaPublicKeyRequest byte = 0x02

// fullAuthCachingSHA2NoTLS performs the non-TLS full-auth exchange for
// caching_sha2_password (spec §4.4, SPEC_FULL Open Question). If
// cfg.AllowFallbackToPlainRSA is false, it refuses to proceed and
// returns ErrAuthPluginRequiresSSL instead, matching the base spec's
// mandated failure mode for callers that opt out of the RSA path.
func fullAuthCachingSHA2NoTLS(c *channel, cfg *Config, scramble []byte) ([]byte, error) {
	if !cfg.AllowFallbackToPlainRSA {
		return nil, ErrAuthPluginRequiresSSL
	}

	pubKey := cfg.ServerPubKey
	if pubKey == nil {
		key, err := requestServerPublicKey(c)
		if err != nil {
			return nil, err
		}
		pubKey = key
	}

	ciphertext, err := encryptPasswordRSA(cfg.Passwd, scramble, pubKey)
	if err != nil {
		return nil, err
	}

	if err := c.write(append(make([]byte, 4), ciphertext...)); err != nil {
		return nil, err
	}
	return c.read()
}

// requestServerPublicKey sends the public-key request byte and parses
// the PEM-encoded key the server replies with (spec §4.4).
func requestServerPublicKey(c *channel) (*rsa.PublicKey, error) {
	data, err := c.takeSmallBuffer(4 + 1)
	if err != nil {
		return nil, err
	}
	data[4] = rsaPublicKeyRequest
	if err := c.write(data); err != nil {
		return nil, err
	}

	reply, err := c.read()
	if err != nil {
		return nil, err
	}
	if len(reply) > 0 && reply[0] == iERR {
		return nil, ErrMalformedPacket
	}

	return parsePublicKeyPEM(reply[1:])
}

// parsePublicKeyPEM decodes an RSA public key from PEM bytes.
func parsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrProtocolValue
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, ErrProtocolValue
	}
	return rsaKey, nil
}

// encryptPasswordRSA XORs the NUL-terminated password with a keystream
// derived from the scramble, then encrypts the result with RSA-OAEP
// (SHA-1), matching the algorithm MySQL 8's caching_sha2_password
// full-auth requires.
func encryptPasswordRSA(password string, scramble []byte, pubKey *rsa.PublicKey) ([]byte, error) {
	plain := append([]byte(password), 0x00)

	xored := make([]byte, len(plain))
	for i := range plain {
		xored[i] = plain[i] ^ scramble[i%len(scramble)]
	}

	return rsa.EncryptOAEP(sha1.New(), rand.Reader, pubKey, xored, nil)
}
