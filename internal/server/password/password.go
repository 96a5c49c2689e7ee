// Package password hashes and verifies passwords with Argon2id.
//
// Hashes use the PHC string format
//
//	$argon2id$v=19$m=<KiB>,t=<iterations>,p=<parallelism>$<salt>$<key>
//
// with unpadded standard base64, so every hash carries the parameters needed
// to verify it later. Stored hashes are treated as untrusted input.
package password

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/blogauth/internal/common"
	"golang.org/x/crypto/argon2"
)

const argon2Version = argon2.Version

// Absolute caps on the cost a stored hash may request. They bound the work
// an attacker-controlled hash can cause and do not depend on the current
// Params, so hashes stay verifiable after the cost is lowered or the host
// has fewer CPUs.
const (
	MaxMemoryKiB   = 1 << 20 // 1 GiB
	MaxIterations  = 64
	MaxParallelism = 64
)

// ErrInvalidParams is returned by NewHasher for unusable cost settings.
var ErrInvalidParams = errors.New("invalid argon2 parameters")

// Params controls Argon2id cost. MemoryKiB is in KiB as argon2.IDKey expects.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Hasher hashes new passwords with its Params and verifies existing hashes.
// It is safe for concurrent use.
type Hasher struct {
	params Params
	dummy  string
}

// NewHasher validates params and precomputes a hash of a random secret that
// DummyVerify compares against.
func NewHasher(params Params) (*Hasher, error) {
	if params.MemoryKiB == 0 || params.Iterations == 0 || params.Parallelism == 0 ||
		!withinBounds(params) {
		return nil, ErrInvalidParams
	}

	h := &Hasher{params: params}

	secret, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, fmt.Errorf("dummy secret: %w", err)
	}
	dummy, err := h.Hash(secret)
	if err != nil {
		return nil, err
	}
	h.dummy = dummy
	return h, nil
}

// Params returns the cost used for new hashes.
func (h *Hasher) Params() Params { return h.params }

// Hash derives an Argon2id key for password under a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := common.GenerateRandByteArray(int(h.params.SaltLength))

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)

	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version,
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encoded. Malformed, unsupported or
// unreasonably expensive hashes yield false.
func (h *Hasher) Verify(password, encoded string) bool {
	params, salt, expected, err := decode(encoded)
	if err != nil {
		return false
	}
	if !withinBounds(params) {
		return false
	}

	key := argon2.IDKey([]byte(password), salt, params.Iterations, params.MemoryKiB, params.Parallelism, params.KeyLength)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

// DummyVerify spends the same work as Verify against a real hash and always
// reports false. Login calls it for unknown usernames.
func (h *Hasher) DummyVerify(password string) bool {
	_ = h.Verify(password, h.dummy)
	return false
}

// NeedsRehash reports whether encoded was produced with a weaker cost than
// the hasher's current Params or with a different parallelism. Undecodable
// hashes also need a rehash.
func (h *Hasher) NeedsRehash(encoded string) bool {
	params, _, _, err := decode(encoded)
	if err != nil {
		return true
	}
	return params.MemoryKiB < h.params.MemoryKiB ||
		params.Iterations < h.params.Iterations ||
		params.Parallelism != h.params.Parallelism ||
		params.KeyLength < h.params.KeyLength ||
		params.SaltLength < h.params.SaltLength
}

// withinBounds rejects parameters above the absolute caps.
func withinBounds(got Params) bool {
	switch {
	case got.MemoryKiB > MaxMemoryKiB:
		return false
	case got.Iterations > MaxIterations:
		return false
	case got.Parallelism > MaxParallelism:
		return false
	case got.SaltLength < 8 || got.SaltLength > 64:
		return false
	case got.KeyLength < 16 || got.KeyLength > 128:
		return false
	}
	return true
}

var errMalformed = errors.New("malformed hash")

func decode(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, errMalformed
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2Version) {
		return Params{}, nil, nil, errMalformed
	}

	var mem, iter, par uint32
	if n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil || n != 3 {
		return Params{}, nil, nil, errMalformed
	}
	if parts[3] != fmt.Sprintf("m=%d,t=%d,p=%d", mem, iter, par) {
		return Params{}, nil, nil, errMalformed
	}
	if mem == 0 || iter == 0 || par == 0 || par > 255 {
		return Params{}, nil, nil, errMalformed
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, errMalformed
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, errMalformed
	}

	return Params{
		MemoryKiB:   mem,
		Iterations:  iter,
		Parallelism: uint8(par),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}, salt, key, nil
}
