package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims surrounding whitespace and applies Unicode NFC
// normalisation. Used for every identity component.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// JobKey is the identity of a Job. Two jobs with equal keys are duplicates.
type JobKey struct {
	ConfigID    string
	Source      string
	Destination string
	Direction   Direction
}

// String renders the key as "config:source->destination/DIRECTION".
func (k JobKey) String() string {
	return fmt.Sprintf("%s:%s->%s/%s", k.ConfigID, k.Source, k.Destination, k.Direction)
}
