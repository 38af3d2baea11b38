package main

import (
	"log/slog"
	"os"

	"github.com/kdevlin/semindex/internal/config"
	"github.com/kdevlin/semindex/internal/graphmirror"
	"github.com/kdevlin/semindex/internal/search"
)

// attachGraphMirror connects the optional Neo4j read replica and wires it
// into the search handler for relationship-style query widening. Best
// effort: a connection failure just leaves graph expansion disabled.
func attachGraphMirror(cfg *config.Config, handler *search.Handler, logger *slog.Logger) {
	user := os.Getenv("NEO4J_USER")
	if user == "" {
		user = "neo4j"
	}
	pass := os.Getenv("NEO4J_PASSWORD")
	if pass == "" {
		logger.Warn("NEO4J_URL set but NEO4J_PASSWORD is not, skipping graph mirror")
		return
	}

	mirror, err := graphmirror.New(cfg.Storage.Neo4jURL, user, pass)
	if err != nil {
		logger.Warn("graph mirror unavailable, relationship queries will not be widened", "error", err)
		return
	}

	handler.SetGraphExpander(mirror)
}
