package mysql

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrambleNativePasswordDeterministic(t *testing.T) {
	scramble := []byte("01234567890123456789")
	a := scrambleNativePassword(scramble, "secret")
	b := scrambleNativePassword(scramble, "secret")
	assert.True(t, constantTimeEqual(a, b))
	assert.Len(t, a, 20)

	c := scrambleNativePassword(scramble, "different")
	assert.False(t, constantTimeEqual(a, c))
}

func TestScrambleNativePasswordEmptyPassword(t *testing.T) {
	assert.Nil(t, scrambleNativePassword([]byte("scramble"), ""))
}

func TestScrambleCachingSHA2PasswordDeterministic(t *testing.T) {
	scramble := []byte("01234567890123456789")
	a := scrambleCachingSHA2Password(scramble, "secret")
	b := scrambleCachingSHA2Password(scramble, "secret")
	assert.True(t, constantTimeEqual(a, b))
	assert.Len(t, a, 32)
}

func TestComputeAuthResponseUnknownPlugin(t *testing.T) {
	_, err := computeAuthResponse("sha256_password", []byte("x"), "secret")
	assert.ErrorIs(t, err, ErrUnknownAuthPlugin)
}

func TestReadHandshakePacketRejectsOldProtocol(t *testing.T) {
	_, err := readHandshakePacket([]byte{9})
	assert.Error(t, err)
}

func TestCheckRequiredCapabilitiesAcceptsFullSet(t *testing.T) {
	server := clientProtocol41 | clientPluginAuth | clientSecureConn | clientSSL
	assert.NoError(t, checkRequiredCapabilities(server))
}

func TestCheckRequiredCapabilitiesRejectsMissingPluginAuth(t *testing.T) {
	server := clientProtocol41 | clientSecureConn
	assert.ErrorIs(t, checkRequiredCapabilities(server), ErrServerUnsupported)
}

func TestCheckRequiredCapabilitiesRejectsMissingSecureConn(t *testing.T) {
	server := clientProtocol41 | clientPluginAuth
	assert.ErrorIs(t, checkRequiredCapabilities(server), ErrServerUnsupported)
}

func TestNegotiateCapabilitiesRespectsServerMask(t *testing.T) {
	cfg := &Config{DBName: "test"}
	server := clientProtocol41 | clientSecureConn // no clientConnectWithDB advertised
	flags := negotiateCapabilities(server, cfg, false)
	assert.Equal(t, clientFlag(0), flags&clientConnectWithDB)
}

func TestEncryptPasswordRSARoundTrip(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	scramble := []byte("01234567890123456789")
	ciphertext, err := encryptPasswordRSA("s3cr3t", scramble, &priv.PublicKey)
	require.NoError(t, err)

	plain, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, priv, ciphertext, nil)
	require.NoError(t, err)

	xored := make([]byte, len(plain))
	for i := range plain {
		xored[i] = plain[i] ^ scramble[i%len(scramble)]
	}
	assert.Equal(t, "s3cr3t\x00", string(xored))
}
