package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres, mysql, sqlite; empty disables history
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr           string `mapstructure:"addr"` // empty keeps room codes in memory
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	CodeTTLMinutes int    `mapstructure:"codeTTLMinutes"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int    `mapstructure:"expire"` // hours
}

type GameConfig struct {
	TurnSeconds      int `mapstructure:"turnSeconds"`
	RoomCodeLength   int `mapstructure:"roomCodeLength"`
	IdleRoomMinutes  int `mapstructure:"idleRoomMinutes"`
	SubscriberBuffer int `mapstructure:"subscriberBuffer"`
}

func (r RedisConfig) CodeTTL() time.Duration {
	return time.Duration(r.CodeTTLMinutes) * time.Minute
}

func (g GameConfig) IdleRoomTimeout() time.Duration {
	return time.Duration(g.IdleRoomMinutes) * time.Minute
}

var GlobalConfig = Default()

// Default returns the settings used when a key is missing from the file.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Mode: "debug"},
		Redis:  RedisConfig{CodeTTLMinutes: 720},
		JWT:    JWTConfig{Secret: "change-me", Expire: 72},
		Game: GameConfig{
			TurnSeconds:      30,
			RoomCodeLength:   5,
			IdleRoomMinutes:  30,
			SubscriberBuffer: 16,
		},
	}
}

func LoadConfig(path string) {
	def := Default()
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	viper.SetDefault("server.port", def.Server.Port)
	viper.SetDefault("server.mode", def.Server.Mode)
	viper.SetDefault("redis.codeTTLMinutes", def.Redis.CodeTTLMinutes)
	viper.SetDefault("jwt.secret", def.JWT.Secret)
	viper.SetDefault("jwt.expire", def.JWT.Expire)
	viper.SetDefault("game.turnSeconds", def.Game.TurnSeconds)
	viper.SetDefault("game.roomCodeLength", def.Game.RoomCodeLength)
	viper.SetDefault("game.idleRoomMinutes", def.Game.IdleRoomMinutes)
	viper.SetDefault("game.subscriberBuffer", def.Game.SubscriberBuffer)

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	GlobalConfig = &cfg
}
