// Package config loads typed configuration structs from environment
// variables using caarlos0/env tags, with a best-effort .env file load on
// first use. Each configuration type is parsed once and cached, so every
// component can call Load for its own Config without re-reading the
// environment.
//
//	type StoreConfig struct {
//		ConnURL string `env:"PG_CONN_URL,required"`
//	}
//
//	var cfg StoreConfig
//	config.MustLoad(&cfg)
package config
