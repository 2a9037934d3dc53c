package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type MusicBrainzConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	UserAgent       string        `mapstructure:"user_agent"`
	RequestInterval time.Duration `mapstructure:"request_interval"`
	PageSize        int           `mapstructure:"page_size"`
	CheckInterval   time.Duration `mapstructure:"check_interval"`
}

type CoverArtConfig struct {
	ArchiveURL     string        `mapstructure:"archive_url"`
	PlaceholderURL string        `mapstructure:"placeholder_url"`
	CheckInterval  time.Duration `mapstructure:"check_interval"`
}

type LastfmConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type EmailConfig struct {
	From                 string `mapstructure:"from"`
	SMTPHost             string `mapstructure:"smtp_host"`
	SMTPPort             int    `mapstructure:"smtp_port"`
	Username             string `mapstructure:"username"`
	Password             string `mapstructure:"password"`
	UnsubscribeSecret    string `mapstructure:"unsubscribe_secret"`
	UnsubscribeURLFormat string `mapstructure:"unsubscribe_url_template"`
}

type SweepConfig struct {
	ReleaseCron  string `mapstructure:"release_cron"`
	CoverArtCron string `mapstructure:"cover_art_cron"`
}

type Config struct {
	DatabaseURL string            `mapstructure:"database_url"`
	ServerPort  string            `mapstructure:"server_port"`
	MusicBrainz MusicBrainzConfig `mapstructure:"musicbrainz"`
	CoverArt    CoverArtConfig    `mapstructure:"coverart"`
	Lastfm      LastfmConfig      `mapstructure:"lastfm"`
	Email       EmailConfig       `mapstructure:"email"`
	Sweep       SweepConfig       `mapstructure:"sweep"`
}

// Load reads the configuration from a YAML file and returns a Config instance.
func Load() *Config {
	v := viper.New()

	// Look for config in the current directory and ./config
	v.AddConfigPath(".")
	v.SetConfigName("config")
	v.AddConfigPath("./config")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		log.Fatalf("Error unmarshalling config: %v", err)
	}

	// Fallback defaults
	if config.ServerPort == "" {
		config.ServerPort = "8080"
	}
	if config.MusicBrainz.BaseURL == "" {
		config.MusicBrainz.BaseURL = "https://musicbrainz.org/ws/2"
	}
	if config.MusicBrainz.UserAgent == "" {
		config.MusicBrainz.UserAgent = "relwatch/1.0 (https://github.com/relwatch/relwatch)"
	}
	if config.MusicBrainz.RequestInterval == 0 {
		config.MusicBrainz.RequestInterval = 2 * time.Second
	}
	if config.MusicBrainz.PageSize == 0 {
		config.MusicBrainz.PageSize = 100
	}
	if config.MusicBrainz.CheckInterval == 0 {
		config.MusicBrainz.CheckInterval = 7 * time.Hour
	}
	if config.CoverArt.ArchiveURL == "" {
		config.CoverArt.ArchiveURL = "https://coverartarchive.org"
	}
	if config.CoverArt.PlaceholderURL == "" {
		config.CoverArt.PlaceholderURL = "https://via.placeholder.com/250x250.png?text=NOT+FOUND"
	}
	if config.CoverArt.CheckInterval == 0 {
		config.CoverArt.CheckInterval = config.MusicBrainz.CheckInterval
	}
	if config.Lastfm.BaseURL == "" {
		config.Lastfm.BaseURL = "https://ws.audioscrobbler.com/2.0/"
	}
	if config.Email.SMTPPort == 0 {
		config.Email.SMTPPort = 587
	}
	if config.Email.UnsubscribeSecret == "" {
		log.Fatal("Email unsubscribe secret must be set in the config file")
	}
	if config.Email.UnsubscribeURLFormat == "" {
		config.Email.UnsubscribeURLFormat = "https://relwatch.net/unsubscribe?token=%s"
	}
	if config.Sweep.ReleaseCron == "" {
		config.Sweep.ReleaseCron = "*/5 * * * *"
	}
	if config.Sweep.CoverArtCron == "" {
		config.Sweep.CoverArtCron = "*/5 * * * *"
	}

	return &config
}
