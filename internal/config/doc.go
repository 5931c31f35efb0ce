// Package config provides configuration structures and utilities for
// lexcrawl. It defines the global crawl options, per-site settings
// loaded from the YAML configuration file, and validation for both.
package config
