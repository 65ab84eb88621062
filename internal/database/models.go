package database

import "time"

// ScanState is the lifecycle state of a scan session.
type ScanState string

const (
	ScanStateNotStarted  ScanState = "not_started"
	ScanStateInProgress  ScanState = "in_progress"
	ScanStateCompleted   ScanState = "completed"
	ScanStateFailed      ScanState = "failed"
	ScanStateInterrupted ScanState = "interrupted"
	ScanStateCancelled   ScanState = "cancelled"
)

// IsTerminal reports whether the state can never transition again.
func (s ScanState) IsTerminal() bool {
	switch s {
	case ScanStateCompleted, ScanStateFailed, ScanStateCancelled:
		return true
	}
	return false
}

// GroupStatus is the review status of a duplicate group.
type GroupStatus string

const (
	GroupStatusPending  GroupStatus = "pending"
	GroupStatusReviewed GroupStatus = "reviewed"
	GroupStatusResolved GroupStatus = "resolved"
)

// MediaRecord is one scanned image file, keyed by its absolute path.
// If IsDeleted is true, FilePath points at the file's current location in
// the trash folder, not its original one.
type MediaRecord struct {
	ID         int64  `json:"id"`
	FilePath   string `json:"filePath"`
	Filename   string `json:"filename"`
	FolderPath string `json:"folderPath"`

	FileSize     int64     `json:"fileSize"`
	FileHash     string    `json:"fileHash"` // MD5 of raw bytes, 32 hex chars
	ModifiedTime time.Time `json:"modifiedTime"`

	DateTaken *time.Time `json:"dateTaken,omitempty"`
	Year      *int       `json:"year,omitempty"`
	Month     *int       `json:"month,omitempty"`
	Day       *int       `json:"day,omitempty"`

	// Perceptual hashes, 16 hex chars each (64 bits)
	PHash string `json:"phash,omitempty"`
	DHash string `json:"dhash,omitempty"`
	AHash string `json:"ahash,omitempty"`

	IsOrganized      bool   `json:"isOrganized"`
	IsFavorite       bool   `json:"isFavorite"`
	IsDeleted        bool   `json:"isDeleted"`
	DuplicateGroupID *int64 `json:"duplicateGroupId,omitempty"`

	ScannedAt time.Time `json:"scannedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ScanSession tracks one scan attempt over one root folder.
type ScanSession struct {
	ID             int64      `json:"id"`
	FolderPath     string     `json:"folderPath"`
	State          ScanState  `json:"state"`
	TotalFiles     int        `json:"totalFiles"`
	ProcessedFiles int        `json:"processedFiles"`
	FailedFiles    int        `json:"failedFiles"`
	// LastProcessedFile is the resume cursor: the last path persisted at a
	// batch boundary, always one previously yielded by the discoverer.
	LastProcessedFile string     `json:"lastProcessedFile,omitempty"`
	ErrorMessage      string     `json:"errorMessage,omitempty"`
	StartedAt         time.Time  `json:"startedAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// ProgressPercent returns processed/total as a percentage, 0 if unknown.
func (s *ScanSession) ProgressPercent() float64 {
	if s.TotalFiles <= 0 {
		return 0
	}
	return float64(s.ProcessedFiles) / float64(s.TotalFiles) * 100
}

// DuplicateGroup is one cluster of visually similar records. GroupHash is
// the anchor's perceptual hash and serves as the stable upsert key across
// clustering reruns.
type DuplicateGroup struct {
	ID        int64       `json:"id"`
	GroupHash string      `json:"groupHash"`
	FileCount int         `json:"fileCount"`
	Status    GroupStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
