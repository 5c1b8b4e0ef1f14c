// Package config loads, validates, and normalizes the examsight TOML
// configuration.
//
// Configuration is resolved from an explicit path, then
// ~/.config/examsight/config.toml, then ./examsight.toml. A .env file in
// the working directory is applied to the environment first so deployment
// secrets (such as the classifier URL) can stay out of the TOML file.
package config
