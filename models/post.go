package models

import "time"

// Post is a feed entry. Creator and Likes hold user ids as opaque strings.
type Post struct {
	ID           string    `gorm:"primaryKey;size:24" json:"_id"`
	Title        string    `gorm:"size:255" json:"title"`
	Body         any       `gorm:"serializer:json;type:json" json:"body"`
	Message      string    `gorm:"type:text" json:"message"`
	Name         string    `gorm:"size:255" json:"name"`
	Creator      string    `gorm:"index;size:255" json:"creator"`
	Tags         []string  `gorm:"serializer:json;type:json" json:"tags"`
	SelectedFile string    `gorm:"type:longtext" json:"selectedFile,omitempty"`
	Likes        []string  `gorm:"serializer:json;type:json" json:"likes"`
	Comments     []string  `gorm:"serializer:json;type:json" json:"comments"`
	CreatedAt    time.Time `gorm:"index" json:"createdAt"`
}

// PostInput carries client supplied post fields. Nil pointers mean "not sent".
type PostInput struct {
	Title        *string  `json:"title"`
	Body         any      `json:"body"`
	Message      *string  `json:"message"`
	Name         *string  `json:"name"`
	Creator      *string  `json:"creator"`
	Tags         []string `json:"tags"`
	SelectedFile *string  `json:"selectedFile"`
}

// Apply copies the content fields present in the input onto p.
// Id, creator, creation time, likes and comments are never touched.
func (in PostInput) Apply(p *Post) {
	if in.Title != nil {
		p.Title = *in.Title
	}
	if in.Body != nil {
		p.Body = in.Body
	}
	if in.Message != nil {
		p.Message = *in.Message
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Tags != nil {
		p.Tags = copyStrings(in.Tags)
	}
	if in.SelectedFile != nil {
		p.SelectedFile = *in.SelectedFile
	}
}

// HasLike reports whether userID already likes the post.
func (p *Post) HasLike(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with p. List fields are never nil
// in the copy so they serialize as [] rather than null.
func (p *Post) Clone() *Post {
	c := *p
	c.Tags = copyStrings(p.Tags)
	c.Likes = copyStrings(p.Likes)
	c.Comments = copyStrings(p.Comments)
	return &c
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
