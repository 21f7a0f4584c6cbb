// Package config loads typed configuration structs from environment
// variables with an optional .env bootstrap for local development.
//
// Every component of the application declares its own config struct with
// env tags and loads it independently; parsed values are cached per type so
// components can load eagerly without coordinating.
package config
