package persist

import "os"

type Config struct {
	RedisAddress  string
	RedisPassword string
	Namespace     string
}

func GetConfig() Config {
	return Config{
		RedisAddress:  getEnv("REDIS_ADDRESS", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		Namespace:     getEnv("SNAPSHOT_NAMESPACE", "world"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
