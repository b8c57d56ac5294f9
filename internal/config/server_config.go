package config

import (
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

func (config ServerConfig) bindEnvironmentVariables() error {
	viper.SetDefault("server.port", 8080)
	return viper.BindEnv("server.port", "PORT")
}
