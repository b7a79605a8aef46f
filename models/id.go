package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// NewID returns a fresh 24 character hex identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID reports whether id is exactly the canonical hex form of an ObjectID.
// Upper-case hex decodes fine but does not round-trip, so it is rejected.
func IsValidID(id string) bool {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false
	}
	return oid.Hex() == id
}
