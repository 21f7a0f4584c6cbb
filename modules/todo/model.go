package todo

import "time"

// Todo is a single list item. Items are scoped to the user that created
// them; the list is always ordered newest first.
type Todo struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Completed bool      `bson:"completed" json:"completed"`
	CreateAt  time.Time `bson:"createAt" json:"createAt"`
	UID       string    `bson:"uid" json:"uid"`
}

// Patch is a partial update to a todo. Nil fields are left untouched.
type Patch struct {
	Name      *string `json:"name,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}
