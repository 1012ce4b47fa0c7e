package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"repost-bot/models"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultIgnoredLinks 是默认不参与转帖检测的链接（每日游戏结果页、频道跳转链接等）。
var DefaultIgnoredLinks = []string{
	`globle-game\.com`,
	`discord\.com/channels`,
	`tenor\.com/view`,
	`heardle\.app`,
	`worldle\.teuteuf\.fr`,
}

// SetDefaults 注册所有配置项的默认值。
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bot.logLevel", "info")
	v.SetDefault("bot.commandPrefix", `(?i)^!rp(m|b) `)
	v.SetDefault("database.path", "data/repost.db")

	v.SetDefault("reconcile.enabled", true)
	v.SetDefault("reconcile.activeInterval", 45*time.Second)
	v.SetDefault("reconcile.idleInterval", 10*time.Minute)
	v.SetDefault("reconcile.errorInterval", 4*time.Minute)
	v.SetDefault("reconcile.idleProbeChance", 0.015)
	v.SetDefault("reconcile.requestsPerSecond", 1.0)
	v.SetDefault("reconcile.burst", 5)

	v.SetDefault("links.ignored", DefaultIgnoredLinks)
	v.SetDefault("images.ignoredProviders", []string{"Tenor", "YouTube"})
	v.SetDefault("images.maxBytes", 25<<20)
	v.SetDefault("images.fetchTimeout", 20*time.Second)

	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("grpc.healthAddr", "")
	v.SetDefault("maintenance.schedule", "@daily")
}

// LoadConfig 从 .env、config.yaml 以及 config/repost.json 加载配置到全局 viper 实例。
// 环境变量会覆盖配置文件中的同名设置。
func LoadConfig() (*models.Config, error) {
	// .env 文件不存在时忽略。
	if err := godotenv.Load(); err != nil {
		log.Printf("未找到 .env 文件，将跳过加载。")
	}
	return Load(viper.GetViper())
}

// Load 读取配置文件并解码为 models.Config。
func Load(v *viper.Viper) (*models.Config, error) {
	SetDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("解析基础配置文件失败: %w", err)
		}
		log.Printf("未找到基础配置文件 (config.yaml)，将仅使用环境变量和默认值。")
	}

	// 合并 config/repost.json（可选）。
	v.SetConfigName("repost")
	v.SetConfigType("json")
	v.AddConfigPath("./config")
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("合并 config/repost.json 失败: %w", err)
		}
	}

	var cfg models.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Token = v.GetString("BOT_TOKEN")
	if cfg.Token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}
	return &cfg, nil
}
