// Package model contains domain models passed between layers.
package model

import "time"

// DeletedAuthor is the sentinel the ingestion source uses for posts whose
// author account no longer exists.
const DeletedAuthor = "[deleted]"

// SocialPost represents a single community post fetched by the ingestion
// client. Immutable once constructed; the classifier treats it as read-only.
type SocialPost struct {
	ID        string    // opaque stable id, used for idempotency
	Title     string    // post title
	Body      string    // self text, may be empty
	Author    string    // account name, DeletedAuthor allowed
	Flair     string    // link flair, empty when absent
	URL       string    // permalink for notifications
	CreatedAt time.Time // submission timestamp
}

// DropDecision is the output of classifying one post.
type DropDecision struct {
	IsDrop      bool
	Confidence  float64 // clamped to [0,1]
	Explanation Explanation
}

// Explanation records every signal that fired during classification so
// callers can see why a decision was made, not just the boolean.
type Explanation struct {
	PrimaryMatches    []string `json:"primary_matches,omitempty"`
	SecondaryMatches  []string `json:"secondary_matches,omitempty"`
	TrustedAuthor     bool     `json:"trusted_author,omitempty"`
	KnownVendorAuthor bool     `json:"known_vendor_author,omitempty"`
	TitleRestock      bool     `json:"title_restock,omitempty"`
	VendorPattern     bool     `json:"vendor_pattern,omitempty"`
	TimePattern       bool     `json:"time_pattern,omitempty"`
	FlairMatch        string   `json:"flair_match,omitempty"`
	LinkPresent       bool     `json:"link_present,omitempty"`
	Excluded          bool     `json:"excluded,omitempty"`
}

// Match pairs a post with its positive classification. Produced by the
// batch classifier in input order.
type Match struct {
	Post     SocialPost
	Decision DropDecision
}
