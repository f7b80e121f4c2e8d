package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shadabtanjeed/UniListing-sub000/internal/config"
)

var Redis *redis.Client
var Ctx = context.Background()

func InitRedis() {
	Redis = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       0,
	})

	_, err := Redis.Ping(Ctx).Result()
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Signup verification will be disabled.", err)
	} else {
		log.Println("Connected to Redis successfully")
	}
}

// OTPSet stores a verification code for a pending signup with a TTL.
func OTPSet(email string, code string, ttl time.Duration) error {
	key := fmt.Sprintf("otp:%s", email)
	return Redis.Set(Ctx, key, code, ttl).Err()
}

// OTPGet fetches the verification code for an email; redis.Nil when absent or expired.
func OTPGet(email string) (string, error) {
	key := fmt.Sprintf("otp:%s", email)
	return Redis.Get(Ctx, key).Result()
}

// OTPDelete removes a consumed verification code.
func OTPDelete(email string) error {
	key := fmt.Sprintf("otp:%s", email)
	return Redis.Del(Ctx, key).Err()
}
