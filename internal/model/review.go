package model

// Review is a reader's rating and comment on a book.
type Review struct {
	ID        int64   `json:"id"`
	Comment   string  `json:"comment"`
	Rating    float64 `json:"rating"`
	Author    string  `json:"author"`
	AuthorID  int64   `json:"authorId"`
	CreatedAt string  `json:"createdAt"`
	LikeCount int64   `json:"likeCount"`

	// LikedByMe reports whether the signed-in user has liked this review.
	LikedByMe bool `json:"isLikedByCurrentUser"`

	Book *Book `json:"book,omitempty"`
}
