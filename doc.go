// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the planning-poker API server.

Planning poker lets a team estimate work together: everyone picks a card in
a shared room, the cards stay face down until someone reveals them, and the
room shows the spread, the average and whether the team agreed.

# Starting the Server

The server reads a .env file if present, then environment variables or CLI
flags:

	ADMIN_KEY_SALT=... DATABASE_URL=poker.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --admin-salt dev

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file path/DSN or PostgreSQL connection string
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - REDIS_ADDR (--redis): Share room updates between instances
  - PUBLIC_BASE_URL (--base-url): Web client URL used in share links

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (rooms, participants, voting, results, users, events)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - realtime: Room change notifications (in-process hub or Redis pub/sub)
  - scales: Estimation scales and card colours
  - models: Request/response types
  - auth: Identifier generation and admin key validation
  - db: Connection and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
