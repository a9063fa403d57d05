package auth

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// stringerID mimics an identifier object whose string form is its value.
type stringerID struct{ v string }

func (s stringerID) String() string { return s.v }

func TestIsOwner(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("507f1f77bcf86cd799439011")
	if err != nil {
		t.Fatalf("ObjectIDFromHex: %v", err)
	}
	hex := oid.Hex()
	empty := ""
	var nilOID *primitive.ObjectID

	tests := []struct {
		name    string
		session any
		author  any
		want    bool
	}{
		{"equal strings", "u1", "u1", true},
		{"different strings", "u1", "u2", false},
		{"string vs stringer", hex, stringerID{hex}, true},
		{"string vs ObjectID", hex, oid, true},
		{"ObjectID vs string", oid, hex, true},
		{"string vs *ObjectID", hex, &oid, true},
		{"different ObjectID", "507f1f77bcf86cd799439012", oid, false},
		{"missing session", nil, "u1", false},
		{"missing author", "u1", nil, false},
		{"empty session", "", "", false},
		{"empty author", "u1", "", false},
		{"nil *ObjectID author", hex, nilOID, false},
		{"*string author", "u1", &empty, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOwner(tt.session, tt.author); got != tt.want {
				t.Errorf("IsOwner(%v, %v) = %v, want %v", tt.session, tt.author, got, tt.want)
			}
		})
	}
}
