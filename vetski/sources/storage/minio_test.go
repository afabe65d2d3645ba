package storage

import (
	"errors"
	"testing"
)

func TestValidateObject(t *testing.T) {
	cases := []struct {
		bucket, key string
		want        error
	}{
		{BucketChatImages, "u1/a.png", nil},
		{BucketAnimalProfiles, "u1/pets/rex.jpg", nil},
		{"secrets", "u1/a.png", ErrUnknownBucket},
		{BucketChatImages, "", ErrInvalidPath},
		{BucketChatImages, "/abs.png", ErrInvalidPath},
		{BucketChatImages, "../u2/a.png", ErrInvalidPath},
		{BucketChatImages, "u1/../u2/a.png", ErrInvalidPath},
	}
	for _, c := range cases {
		err := ValidateObject(c.bucket, c.key)
		if c.want == nil && err != nil {
			t.Errorf("%s/%s: unexpected error %v", c.bucket, c.key, err)
		}
		if c.want != nil && !errors.Is(err, c.want) {
			t.Errorf("%s/%s: expected %v, got %v", c.bucket, c.key, c.want, err)
		}
	}
}

func TestUserKey(t *testing.T) {
	if got := UserKey("u1", "/pets/a.png"); got != "u1/pets/a.png" {
		t.Errorf("got %q", got)
	}
	if got := UserKey("u1", "u1/pets/a.png"); got != "u1/pets/a.png" {
		t.Errorf("already namespaced key changed: %q", got)
	}
}
