package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shadabtanjeed/UniListing-sub000/internal/database"
)

// OTPTTL is how long a signup verification code stays valid.
const OTPTTL = 10 * time.Minute

// CodeStore holds short-lived signup verification codes. The Redis-backed
// implementation is used in production; tests inject an in-memory one.
type CodeStore interface {
	Put(email, code string, ttl time.Duration) error
	Get(email string) (string, bool, error)
	Delete(email string) error
}

// RedisCodeStore stores codes in Redis with a TTL.
type RedisCodeStore struct{}

func (RedisCodeStore) Put(email, code string, ttl time.Duration) error {
	return database.OTPSet(email, code, ttl)
}

func (RedisCodeStore) Get(email string) (string, bool, error) {
	code, err := database.OTPGet(email)
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

func (RedisCodeStore) Delete(email string) error {
	return database.OTPDelete(email)
}

// GenerateOTP returns a 6-digit numeric code.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
