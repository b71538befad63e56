package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/quorum-review/quorum/internal/engine"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Instance InstanceConfig `toml:"instance"`
	Rules    RulesConfig    `toml:"rules"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret      string `toml:"jwt_secret"`
	TokenExpiryMin int    `toml:"token_expiry_min"`
}

type InstanceConfig struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

// RulesConfig overrides the scalar knobs of the engine rule-set. Zero
// values mean "keep the default", so a partial [rules] table is valid.
// Band tables (reviewer weights, Elo K, tier ladder) stay in code — they
// move together when the rule-set is rebalanced and are not safe to tune
// one field at a time.
type RulesConfig struct {
	StartingCredibility float64 `toml:"starting_credibility"`
	MinReviewsForScore  int     `toml:"min_reviews_for_score"`
	ContestedVariance   float64 `toml:"contested_variance"`
	HallScore           float64 `toml:"hall_score"`
	DistinguishedScore  float64 `toml:"distinguished_score"`
	LandmarkScore       float64 `toml:"landmark_score"`
	ReviewReward        float64 `toml:"review_reward"`
	BountyMinScoreDrop  float64 `toml:"bounty_min_score_drop"`
	BountyMinReviews    int     `toml:"bounty_min_reviews"`
}

// ToRules materializes the immutable engine rule-set: defaults overlaid
// with any configured overrides.
func (rc RulesConfig) ToRules() engine.Rules {
	r := engine.DefaultRules()
	if rc.StartingCredibility > 0 {
		r.StartingCredibility = rc.StartingCredibility
	}
	if rc.MinReviewsForScore > 0 {
		r.MinReviewsForScore = rc.MinReviewsForScore
	}
	if rc.ContestedVariance > 0 {
		r.ContestedVariance = rc.ContestedVariance
	}
	if rc.HallScore > 0 {
		r.HallScore = rc.HallScore
	}
	if rc.DistinguishedScore > 0 {
		r.DistinguishedScore = rc.DistinguishedScore
	}
	if rc.LandmarkScore > 0 {
		r.LandmarkScore = rc.LandmarkScore
	}
	if rc.ReviewReward > 0 {
		r.ReviewReward = rc.ReviewReward
	}
	if rc.BountyMinScoreDrop > 0 {
		r.Bounty.MinScoreDrop = rc.BountyMinScoreDrop
	}
	if rc.BountyMinReviews > 0 {
		r.Bounty.MinReviewsSince = rc.BountyMinReviews
	}
	return r
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Database: DatabaseConfig{
			Path: "data/quorum.db",
		},
		Auth: AuthConfig{
			JWTSecret:      "change-me-in-production",
			TokenExpiryMin: 1440, // 24h
		},
		Instance: InstanceConfig{
			ID:   "local",
			Name: "quorum-local",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
