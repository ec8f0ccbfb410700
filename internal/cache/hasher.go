package cache

import (
	"crypto/md5"
	"encoding/hex"
)

// ComputeDigest hashes content. Callers build content as source text followed
// directly by the options string; order and the absence of a separator are
// part of the cache format.
//
// MD5 is a change-detection checksum here, kept so digests match the ones the
// editor extension writes into the shared cache file.
func ComputeDigest(content string) Digest {
	sum := md5.Sum([]byte(content))
	return Digest(hex.EncodeToString(sum[:]))
}

// DigestFor returns ComputeDigest(content + options).
func DigestFor(content []byte, options string) Digest {
	return ComputeDigest(string(content) + options)
}
