// Package names generates testnet player display names. Searched the
// retrieved example pack for an adjective/noun name-generator library
// (the kind docker and moby vendor) and found none among the dependency
// sets present; this package is a small stdlib generator instead, with
// a google/uuid-derived suffix (four hex characters) so that a repeated
// adjective/noun pair rarely yields a duplicate name — see DESIGN.md.
package names

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

var adjectives = []string{
	"brisk", "calm", "dapper", "eager", "fickle", "gentle", "hasty",
	"icy", "jolly", "keen", "lively", "mellow", "nimble", "plucky",
	"quiet", "rowdy", "stout", "tidy", "upbeat", "vivid", "wily",
}

var nouns = []string{
	"badger", "cobra", "dingo", "egret", "falcon", "gecko", "heron",
	"ibex", "jackal", "koala", "lemur", "marten", "newt", "otter",
	"puffin", "quail", "raven", "skink", "tapir", "viper", "weasel",
}

// Generate returns a human-readable testnet name like "brisk-otter-a1b2",
// where the suffix is the first four hex characters of a fresh UUID.
func Generate() string {
	adj := adjectives[rand.Intn(len(adjectives))]
	noun := nouns[rand.Intn(len(nouns))]
	suffix := uuid.New().String()[:4]
	return fmt.Sprintf("%s-%s-%s", adj, noun, suffix)
}
