package models

// User is an account. Posts is the owner's post ids in creation order and is kept
// in sync with Post.Creator by the post service.
type User struct {
	ID       string   `gorm:"primaryKey;size:24" json:"_id"`
	Name     string   `gorm:"size:255;not null" json:"name"`
	Email    string   `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password string   `gorm:"size:255;not null" json:"-"`
	Posts    []string `gorm:"serializer:json;type:json" json:"posts"`
}

// Clone returns a copy that shares no slices with u.
func (u *User) Clone() *User {
	c := *u
	c.Posts = copyStrings(u.Posts)
	return &c
}

// RemovePost drops every occurrence of postID from the ownership list.
func (u *User) RemovePost(postID string) {
	kept := u.Posts[:0]
	for _, id := range u.Posts {
		if id != postID {
			kept = append(kept, id)
		}
	}
	u.Posts = kept
}
