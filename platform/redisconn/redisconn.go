// Package redisconn turns a REDIS_URL into go-redis options shared by the
// score cache and the asynq scheduler.
package redisconn

import (
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Options parses redisURL. tlsInsecure skips certificate verification, for
// managed Redis instances behind self-signed certificates.
func Options(redisURL string, tlsInsecure bool) (*redis.Options, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		opt.TLSConfig = clone
	} else if tlsInsecure {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opt, nil
}

// NewClient builds a go-redis client from a URL.
func NewClient(redisURL string, tlsInsecure bool) (*redis.Client, error) {
	opt, err := Options(redisURL, tlsInsecure)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}
