package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"sync"
	"time"
)

// DeriveKey computes the signing key:
//
//	kDate    = HMAC("AWS4" + secret, yyyymmdd)
//	kRegion  = HMAC(kDate, region)
//	kService = HMAC(kRegion, service)
//	kSigning = HMAC(kService, "aws4_request")
func DeriveKey(secret, service, region string, t SigningTime) []byte {
	kDate := HMACSHA256([]byte("AWS4"+secret), []byte(t.ShortTimeFormat()))
	kRegion := HMACSHA256(kDate, []byte(region))
	kService := HMACSHA256(kRegion, []byte(service))
	return HMACSHA256(kService, []byte("aws4_request"))
}

// HMACSHA256 returns the HMAC-SHA256 of data under key.
func HMACSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

type derivedKey struct {
	accessKeyID string
	secret      string
	date        time.Time
	key         []byte
}

// keyCache remembers one derived key per region and service. An entry is
// reused only for the same credentials on the same UTC day.
type keyCache struct {
	mu     sync.RWMutex
	values map[string]derivedKey
}

func newKeyCache() *keyCache {
	return &keyCache{values: make(map[string]derivedKey)}
}

func isSameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (c *keyCache) derive(accessKeyID, secret, service, region string, t SigningTime) []byte {
	lookup := region + "/" + service

	c.mu.RLock()
	k, ok := c.values[lookup]
	c.mu.RUnlock()
	if ok && k.accessKeyID == accessKeyID && k.secret == secret && isSameDay(k.date, t.Time) {
		return k.key
	}

	key := DeriveKey(secret, service, region, t)
	c.mu.Lock()
	c.values[lookup] = derivedKey{accessKeyID: accessKeyID, secret: secret, date: t.Time, key: key}
	c.mu.Unlock()
	return key
}
