package tlru

import (
	"errors"
	"time"
)

// configuration for a TLRU cache
type Config struct {
	MaxBytes   int64         // Maximum bytes in the storage, set to -1 to disable byte limit, only enforced with SizeOf
	MaxItems   int           // Maximum number of items in the storage, set to -1 to disable item limit
	DefaultTTL time.Duration // TTL for items added into the cache, 0 disables expiration
	SizeOf     func(value any) int64
}

const ConfigDefaultMaxBytes = 67_108_864
const ConfigDefaultMaxItems = 65_536

func (c *Config) Validate() error {
	if c.MaxBytes == 0 {
		c.MaxBytes = ConfigDefaultMaxBytes
	}
	if c.MaxItems == 0 {
		c.MaxItems = ConfigDefaultMaxItems
	}
	if c.MaxBytes < -1 || c.MaxItems < -1 {
		return errors.New("tlru: limits must be positive or -1")
	}
	if c.DefaultTTL < 0 {
		return errors.New("tlru: negative ttl")
	}
	return nil
}
