package flow

import "strings"

// Classifier partitions participant identifiers into capability classes.
// The two sets come from configuration and are immutable after construction.
type Classifier struct {
	institutional map[string]struct{}
	retail        map[string]struct{}
}

// NewClassifier builds a classifier from the configured identifier sets.
// Identifiers are compared case-insensitively.
func NewClassifier(institutional, retail []string) *Classifier {
	c := &Classifier{
		institutional: make(map[string]struct{}, len(institutional)),
		retail:        make(map[string]struct{}, len(retail)),
	}
	for _, id := range institutional {
		if id = canonicalID(id); id != "" {
			c.institutional[id] = struct{}{}
		}
	}
	for _, id := range retail {
		if id = canonicalID(id); id != "" {
			c.retail[id] = struct{}{}
		}
	}
	return c
}

// Classify returns the class of a participant id, or ClassUnknown when the
// id is in neither configured set. Unknown must stay neutral in scoring.
func (c *Classifier) Classify(id string) Class {
	id = canonicalID(id)
	if _, ok := c.institutional[id]; ok {
		return ClassInstitutional
	}
	if _, ok := c.retail[id]; ok {
		return ClassRetail
	}
	return ClassUnknown
}

func canonicalID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
