package model

import "time"

// ItemStatus is the outcome of the last replication attempt for an item.
type ItemStatus string

const (
	ItemSuccess ItemStatus = "SUCCESS"
	ItemFailure ItemStatus = "FAILURE"
)

// Item tracks replication of one metadata record from Source to
// Destination. Source and Destination are adapter system names.
type Item struct {
	MetadataID       string     `json:"metadata_id"`
	ConfigID         string     `json:"config_id"`
	Source           string     `json:"source"`
	Destination      string     `json:"destination"`
	Status           ItemStatus `json:"status"`
	FailureCount     int        `json:"failure_count"`
	MetadataModified time.Time  `json:"metadata_modified"`
	LastAttempt      time.Time  `json:"last_attempt"`
}

// NewItem creates a tracker entry for a first attempt.
func NewItem(metadataID, configID, source, destination string) Item {
	return Item{
		MetadataID:  metadataID,
		ConfigID:    configID,
		Source:      source,
		Destination: destination,
	}
}

// RecordSuccess marks the item replicated and clears its failure counter.
func (i *Item) RecordSuccess(modified, at time.Time) {
	i.Status = ItemSuccess
	i.FailureCount = 0
	i.MetadataModified = modified
	i.LastAttempt = at
}

// RecordFailure marks the item failed and increments its failure counter.
func (i *Item) RecordFailure(at time.Time) {
	i.Status = ItemFailure
	i.FailureCount++
	i.LastAttempt = at
}

// Succeeded reports whether the last attempt succeeded.
func (i Item) Succeeded() bool { return i.Status == ItemSuccess }
