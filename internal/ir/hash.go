package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// domainSpec is the domain prefix for spec fingerprints. The version
// suffix enables future algorithm migration without ambiguity.
const domainSpec = "stratum/spec/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of a spec: the
// lowercase hex SHA-256 of its canonical encoding. Stable across parses
// of the same document regardless of key order or formatting.
func Fingerprint(s *Spec) (string, error) {
	canonical, err := MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(domainSpec, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the spec is known to be valid.
func MustFingerprint(s *Spec) string {
	fp, err := Fingerprint(s)
	if err != nil {
		panic(err)
	}
	return fp
}
