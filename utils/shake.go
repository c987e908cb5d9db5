package utils

import "golang.org/x/crypto/sha3"

// HashWithDomain computes a domain-separated SHA3-256 hash.
// It prefixes the data with the length of the domain string and the domain string itself.
// Panics if domain is longer than 255 bytes.
func HashWithDomain(domain string, data []byte) []byte {
	domainBytes := []byte(domain)
	if len(domainBytes) > 255 {
		panic("domain string must be at most 255 bytes")
	}
	h := sha3.New256()
	h.Write([]byte{byte(len(domainBytes))})
	h.Write(domainBytes)
	h.Write(data)
	return h.Sum(nil)
}

// NewShakeReader returns an endless deterministic byte stream: SHAKE256 over
// the domain-separated seed. It is the randomness capability used for
// reproducible setups and test fixtures; it is not safe for concurrent use.
// Panics if domain is longer than 255 bytes.
func NewShakeReader(domain string, seed []byte) sha3.ShakeHash {
	domainBytes := []byte(domain)
	if len(domainBytes) > 255 {
		panic("domain string must be at most 255 bytes")
	}
	h := sha3.NewShake256()
	h.Write([]byte{byte(len(domainBytes))})
	h.Write(domainBytes)
	h.Write(seed)
	return h
}
