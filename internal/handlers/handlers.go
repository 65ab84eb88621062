package handlers

import (
	"photo-dedup/internal/database"
	"photo-dedup/internal/duplicates"
	"photo-dedup/internal/organizer"
	"photo-dedup/internal/scanner"
	"photo-dedup/internal/startup"
)

type Handlers struct {
	db         *database.Database
	scanner    *scanner.Scanner
	clusterer  *duplicates.Clusterer
	actor      *duplicates.Actor
	organizer  *organizer.Organizer
	libraryDir string
	threshold  int
}

func New(db *database.Database, sc *scanner.Scanner, config *startup.Config) *Handlers {
	return &Handlers{
		db:         db,
		scanner:    sc,
		clusterer:  duplicates.NewClusterer(db),
		actor:      duplicates.NewActor(db, config.FavoritesDir),
		organizer:  organizer.New(db),
		libraryDir: config.LibraryDir,
		threshold:  config.SimilarityThreshold,
	}
}
