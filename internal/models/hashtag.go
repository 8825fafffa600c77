package models

// Hashtag is a deduplicated tag token. Tags are matched case-sensitively,
// so "#Launch" and "#launch" are distinct records. SearchHits counts
// explicit searches only; creating or reusing a tag does not touch it.
type Hashtag struct {
	ID         int    `bson:"_id" json:"id"`
	Tag        string `bson:"tag" json:"tag"`
	SearchHits int    `bson:"search_hits" json:"search_hits"`
}
