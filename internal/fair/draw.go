package fair

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

var (
	ErrEmptyServerSeed   = errors.New("server seed is empty")
	ErrInvalidClientSeed = errors.New("client seed must be 8-64 alphanumeric characters")
	ErrInvalidMax        = errors.New("max must be greater than zero")
)

var clientSeedPattern = regexp.MustCompile(`^[a-zA-Z0-9]{8,64}$`)

// drawBits is the number of hash bits a single draw consumes. 52 bits fit a
// float64 mantissa exactly, so Draw covers [0,1) without rounding artifacts
// and DrawInt's mod reduction carries bias below max/2^52.
const drawBits = 52

func ValidClientSeed(seed string) bool {
	return clientSeedPattern.MatchString(seed)
}

// drawValue computes the raw 52-bit value for one (seed pair, nonce, index)
// position: HMAC-SHA256 keyed by the server seed over "clientSeed:nonce:index".
// Pure; any party holding the revealed server seed can recompute it.
func drawValue(serverSeed, clientSeed string, nonce uint64, index int) uint64 {
	mac := hmac.New(sha256.New, []byte(serverSeed))
	fmt.Fprintf(mac, "%s:%d:%d", clientSeed, nonce, index)
	sum := mac.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8]) >> (64 - drawBits)
}

// Draw returns a uniform float64 in [0,1) for the given derivation inputs.
func Draw(serverSeed, clientSeed string, nonce uint64, index int) (float64, error) {
	if serverSeed == "" {
		return 0, ErrEmptyServerSeed
	}
	if !ValidClientSeed(clientSeed) {
		return 0, ErrInvalidClientSeed
	}
	return float64(drawValue(serverSeed, clientSeed, nonce, index)) / float64(uint64(1)<<drawBits), nil
}

// DrawInt returns a uniform integer in [0,max) from the same stream position
// Draw would use.
func DrawInt(serverSeed, clientSeed string, nonce uint64, index int, max int) (int, error) {
	if max <= 0 {
		return 0, ErrInvalidMax
	}
	if serverSeed == "" {
		return 0, ErrEmptyServerSeed
	}
	if !ValidClientSeed(clientSeed) {
		return 0, ErrInvalidClientSeed
	}
	return int(drawValue(serverSeed, clientSeed, nonce, index) % uint64(max)), nil
}

// Stream hands out successive draw indices for one outcome so that no index
// is ever consumed twice within a round.
type Stream struct {
	serverSeed string
	clientSeed string
	nonce      uint64
	next       int
}

func NewStream(serverSeed, clientSeed string, nonce uint64) (*Stream, error) {
	if serverSeed == "" {
		return nil, ErrEmptyServerSeed
	}
	if !ValidClientSeed(clientSeed) {
		return nil, ErrInvalidClientSeed
	}
	return &Stream{serverSeed: serverSeed, clientSeed: clientSeed, nonce: nonce}, nil
}

func (s *Stream) Float() float64 {
	v := drawValue(s.serverSeed, s.clientSeed, s.nonce, s.next)
	s.next++
	return float64(v) / float64(uint64(1)<<drawBits)
}

func (s *Stream) Int(max int) (int, error) {
	if max <= 0 {
		return 0, ErrInvalidMax
	}
	v := drawValue(s.serverSeed, s.clientSeed, s.nonce, s.next)
	s.next++
	return int(v % uint64(max)), nil
}

// Consumed reports how many draw indices the stream has handed out.
func (s *Stream) Consumed() int {
	return s.next
}

// ProofHash binds a round's derivation inputs and serialized result into a
// hash a player can recompute once the server seed for the epoch is revealed.
func ProofHash(serverSeed, clientSeed string, nonce uint64, resultJSON []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s:%s:%d:", serverSeed, clientSeed, nonce)
	h.Write(resultJSON)
	return hex.EncodeToString(h.Sum(nil))
}

// CommitHash is the public commitment published for a server seed before the
// seed is ever used.
func CommitHash(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}
