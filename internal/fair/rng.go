package fair

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
)

// ByteGenerator streams cryptographically derived bytes from
// HMAC-SHA256(serverSeed, "clientSeed:nonce:round"). Every outcome in the
// system is a deterministic function of this stream, so a player holding the
// disclosed server seed can replay any bet.
type ByteGenerator struct {
	serverSeed   string
	clientSeed   string
	nonce        int64
	currentRound uint64
	currentPos   int
	buffer       [32]byte
}

func NewByteGenerator(serverSeed, clientSeed string, nonce int64) *ByteGenerator {
	bg := &ByteGenerator{
		serverSeed: serverSeed,
		clientSeed: clientSeed,
		nonce:      nonce,
	}
	bg.generateRound()
	return bg
}

func (bg *ByteGenerator) Next() byte {
	if bg.currentPos >= 32 {
		bg.currentRound++
		bg.currentPos = 0
		bg.generateRound()
	}

	b := bg.buffer[bg.currentPos]
	bg.currentPos++
	return b
}

// NextFloat consumes exactly 4 bytes and maps them to [0, 1).
func (bg *ByteGenerator) NextFloat() float64 {
	b0 := bg.Next()
	b1 := bg.Next()
	b2 := bg.Next()
	b3 := bg.Next()

	return bytesToFloat([4]byte{b0, b1, b2, b3})
}

func (bg *ByteGenerator) generateRound() {
	h := hmac.New(sha256.New, []byte(bg.serverSeed))
	message := fmt.Sprintf("%s:%d:%d", bg.clientSeed, bg.nonce, bg.currentRound)
	h.Write([]byte(message))
	copy(bg.buffer[:], h.Sum(nil))
}

func bytesToFloat(bytes [4]byte) float64 {
	result := 0.0
	for i, b := range bytes {
		divider := math.Pow(256, float64(i+1))
		result += float64(b) / divider
	}
	return result
}

// Floats returns count floats for the given seed triple.
func Floats(serverSeed, clientSeed string, nonce int64, count int) []float64 {
	bg := NewByteGenerator(serverSeed, clientSeed, nonce)
	floats := make([]float64, count)

	for i := 0; i < count; i++ {
		floats[i] = bg.NextFloat()
	}

	return floats
}

// ResultHash is the first HMAC round in hex, stored with every settled wager
// so a third party can check the seeds were not swapped after the bet.
func ResultHash(serverSeed, clientSeed string, nonce int64) string {
	h := hmac.New(sha256.New, []byte(serverSeed))
	h.Write([]byte(fmt.Sprintf("%s:%d:%d", clientSeed, nonce, 0)))
	return hex.EncodeToString(h.Sum(nil))
}
