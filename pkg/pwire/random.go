package pwire

import (
	"math/rand"
	"time"
	"unsafe"
)

const (
	letterBytes   = "0123456789!@#$%^&*()_+abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	letterIdxBits = 6                    // 6 bits to represent a letter index
	letterIdxMask = 1<<letterIdxBits - 1 // All 1-bits, as many as letterIdxBits
	letterIdxMax  = 63 / letterIdxBits   // # of letter indices fitting in 63 bits
)

// RandomStringFromSource generates a Random string that should always be unique.
// Example RandSrc.) var src = rand.NewSource(time.Now().UnixNano())
// Source: https://stackoverflow.com/questions/22892120/how-to-generate-a-random-string-of-a-fixed-length-in-go
func RandomStringFromSource(size int, src rand.Source) string {

	b := make([]byte, size)

	for i, cache, remain := size-1, src.Int63(), letterIdxMax; i >= 0; {
		if remain == 0 {
			cache, remain = src.Int63(), letterIdxMax
		}
		if idx := int(cache & letterIdxMask); idx < len(letterBytes) {
			b[i] = letterBytes[idx]
			i--
		}
		cache >>= letterIdxBits
		remain--
	}

	return *(*string)(unsafe.Pointer(&b))
}

// RandomMessageID picks a fresh two character printable wire id. The core
// performs no collision detection, callers juggling many concurrent messages
// to one peer re-roll on collision.
func RandomMessageID() string {

	src := rand.NewSource(time.Now().UnixNano())
	return RandomStringFromSource(MessageIDLength, src)
}

// RandomBytes returns incompressible random payload bytes, mostly useful for
// tests and benchmarks.
func RandomBytes(size int) []byte {

	buffer := make([]byte, size)
	rand.New(rand.NewSource(time.Now().UnixNano())).Read(buffer)

	return buffer
}

// RepeatedBytes returns a highly compressible payload of the requested size.
func RepeatedBytes(size int, repeat int) []byte {

	if repeat < 1 {
		return nil
	}

	buffer := make([]byte, size)
	for i := 0; i < size; i++ {
		buffer[i] = byte((i / repeat) % 256)
	}

	return buffer
}
