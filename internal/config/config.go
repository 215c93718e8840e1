package config

type Config interface {
	EnvConfig
	RedisConfig
	StoreConfig
}

type mainConfig struct {
	EnvVars
	Redis
	Store
}

func New() Config {
	return mainConfig{}
}
