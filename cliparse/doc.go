// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration parsing from CLI flags and environment.

# Usage

	cliparse.LoadEnvFile() // optional .env
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Priority

Configuration values are resolved in order:

 1. CLI flags (highest priority)
 2. Environment variables (including a loaded .env file)
 3. Default values

# Flags and Environment Variables

	-p           PORT             Server port (default: 3318)
	-d           DATABASE_URL     Database connection string (required)
	-t           DATABASE_TYPE    sqlite (default) or postgres
	-admin-salt  ADMIN_KEY_SALT   HMAC secret for admin keys (required)
	-redis       REDIS_ADDR       Redis address; enables cross-instance updates
	-base-url    PUBLIC_BASE_URL  Web client URL used in share links
*/
package cliparse
