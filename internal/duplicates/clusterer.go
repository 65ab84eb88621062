package duplicates

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"photo-dedup/internal/database"
	"photo-dedup/internal/fingerprint"
	"photo-dedup/internal/logging"
	"photo-dedup/internal/metrics"
)

// DefaultThreshold is the default maximum hamming distance for two images
// to be considered duplicates. Lower is stricter.
const DefaultThreshold = 10

// Group is one duplicate cluster as presented to callers.
type Group struct {
	GroupID         int64                  `json:"groupId"`
	Files           []database.MediaRecord `json:"files"`
	SimilarityScore float64                `json:"similarityScore"`
	Status          database.GroupStatus   `json:"status"`
}

// Clusterer groups visually similar records by perceptual hash distance.
type Clusterer struct {
	db *database.Database
}

// NewClusterer creates a Clusterer over the given store.
func NewClusterer(db *database.Database) *Clusterer {
	return &Clusterer{db: db}
}

// FindDuplicates runs a clustering pass over all non-deleted fingerprinted
// records, optionally restricted to a folder prefix, and persists the
// resulting groups.
//
// The algorithm is anchor-relative and single-pass: records are visited in
// stored order, the first unvisited record anchors a group, and every
// later unvisited record within threshold OF THE ANCHOR joins it. This is
// deliberately not transitive: two members may be farther than threshold
// from each other while both being close to the anchor. Which record
// anchors a group depends only on the stable stored order, which keeps
// group identity (the anchor's hash) stable across reruns.
func (c *Clusterer) FindDuplicates(ctx context.Context, folderPrefix string, threshold int) ([]Group, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	start := time.Now()
	metrics.ClusterRunsTotal.Inc()

	records, err := c.db.ListFingerprinted(ctx, folderPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to load fingerprints: %w", err)
	}
	if len(records) == 0 {
		metrics.ClusterGroupsFound.Set(0)
		return []Group{}, nil
	}

	visited := make(map[int64]bool, len(records))
	var groups []Group

	for i := range records {
		anchor := &records[i]
		if visited[anchor.ID] {
			continue
		}
		visited[anchor.ID] = true

		members := []database.MediaRecord{*anchor}
		for j := i + 1; j < len(records); j++ {
			other := &records[j]
			if visited[other.ID] {
				continue
			}
			if fingerprint.HammingDistance(anchor.PHash, other.PHash) <= threshold {
				members = append(members, *other)
				visited[other.ID] = true
			}
		}

		if len(members) < 2 {
			continue
		}

		group, err := c.persistGroup(ctx, anchor.PHash, members)
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}

	metrics.ClusterGroupsFound.Set(float64(len(groups)))
	metrics.ClusterDuration.Observe(time.Since(start).Seconds())
	logging.Info("Clustering found %d duplicate group(s) across %d records (threshold=%d) in %v",
		len(groups), len(records), threshold, time.Since(start).Round(time.Millisecond))

	if groups == nil {
		groups = []Group{}
	}
	return groups, nil
}

// persistGroup stores or refreshes the duplicate group keyed by the
// anchor's hash and points every member at it.
func (c *Clusterer) persistGroup(ctx context.Context, anchorHash string, members []database.MediaRecord) (*Group, error) {
	stored, err := c.db.GetGroupByHash(ctx, anchorHash)
	if err != nil {
		return nil, fmt.Errorf("group lookup failed: %w", err)
	}

	if stored == nil {
		stored, err = c.db.CreateGroup(ctx, anchorHash, len(members))
		if err != nil {
			return nil, err
		}
	} else {
		if err := c.db.UpdateGroupCount(ctx, stored.ID, len(members)); err != nil {
			return nil, fmt.Errorf("failed to update group %d: %w", stored.ID, err)
		}
		stored.FileCount = len(members)
	}

	ids := make([]int64, len(members))
	for i := range members {
		ids[i] = members[i].ID
		members[i].DuplicateGroupID = &stored.ID
	}
	if err := c.db.AssignDuplicateGroup(ctx, ids, stored.ID); err != nil {
		return nil, fmt.Errorf("failed to assign group %d: %w", stored.ID, err)
	}

	return &Group{
		GroupID:         stored.ID,
		Files:           members,
		SimilarityScore: similarityScore(members),
		Status:          stored.Status,
	}, nil
}

// StoredGroups returns previously persisted duplicate groups with their
// live members, optionally filtered by folder prefix and status. Groups
// with fewer than two live members stay stored but are not presented.
func (c *Clusterer) StoredGroups(ctx context.Context, folderPrefix string, status database.GroupStatus) ([]Group, error) {
	stored, err := c.db.ListGroups(ctx, status)
	if err != nil {
		return nil, err
	}

	groups := []Group{}
	for i := range stored {
		members, err := c.db.GetGroupMembers(ctx, stored[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load members of group %d: %w", stored[i].ID, err)
		}

		if folderPrefix != "" {
			members = filterByFolderPrefix(members, folderPrefix)
		}
		if len(members) < 2 {
			continue
		}

		groups = append(groups, Group{
			GroupID:         stored[i].ID,
			Files:           members,
			SimilarityScore: similarityScore(members),
			Status:          stored[i].Status,
		})
	}
	return groups, nil
}

// similarityScore maps the average pairwise hash distance over ALL pairs
// (not just anchor pairs) to a 0..100 score, rounded to two decimals.
func similarityScore(members []database.MediaRecord) float64 {
	totalDistance := 0
	comparisons := 0
	for i := range members {
		for j := i + 1; j < len(members); j++ {
			totalDistance += fingerprint.HammingDistance(members[i].PHash, members[j].PHash)
			comparisons++
		}
	}
	if comparisons == 0 {
		return 0
	}

	avg := float64(totalDistance) / float64(comparisons)
	score := math.Max(0, 100-avg/float64(fingerprint.MaxDistance)*100)
	return math.Round(score*100) / 100
}

func filterByFolderPrefix(records []database.MediaRecord, prefix string) []database.MediaRecord {
	filtered := records[:0:0]
	for _, r := range records {
		if strings.HasPrefix(r.FolderPath, prefix) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
