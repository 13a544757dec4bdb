package myredis

// RedisConfig holds redis connection settings loaded from environment variables.
type RedisConfig struct {
	Addr string
}
